package model

import (
	"strings"
	"time"
)

// AccountID uniquely identifies any account (player, parent, coach, admin)
type AccountID string

// ActorKind is the fixed set of account kinds
type ActorKind string

const (
	KindPlayer ActorKind = "player"
	KindParent ActorKind = "parent"
	KindCoach  ActorKind = "coach"
	KindAdmin  ActorKind = "admin"
)

// ParseActorKind validates an actor kind string (case-insensitive)
func ParseActorKind(s string) (ActorKind, error) {
	switch k := ActorKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPlayer, KindParent, KindCoach, KindAdmin:
		return k, nil
	}
	return "", NewValidationError("kind", "must be one of player, parent, coach, admin")
}

// Account is a registered user of the platform
type Account struct {
	ID           AccountID
	Username     string // login username (immutable, lower-cased)
	DisplayName  string
	Kind         ActorKind
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}

// Actor is the authenticated caller of an operation.
// Every core operation takes it explicitly; there is no ambient session.
type Actor struct {
	ID   AccountID
	Kind ActorKind
}

// IsReviewer reports whether the actor may review achievements
func (a Actor) IsReviewer() bool {
	return a.Kind == KindCoach || a.Kind == KindAdmin
}

// Is reports whether the actor is the given account
func (a Actor) Is(id AccountID) bool {
	return a.ID != "" && a.ID == id
}
