package model

import (
	"strings"
	"time"
)

// Relationship describes how a guardian relates to a player (descriptive only)
type Relationship string

const (
	RelationshipParent   Relationship = "parent"
	RelationshipFather   Relationship = "father"
	RelationshipMother   Relationship = "mother"
	RelationshipGuardian Relationship = "guardian"
	RelationshipOther    Relationship = "other"
)

// ParseRelationship validates a relationship string (case-insensitive).
// An empty string defaults to parent.
func ParseRelationship(s string) (Relationship, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RelationshipParent, nil
	}
	switch r := Relationship(s); r {
	case RelationshipParent, RelationshipFather, RelationshipMother, RelationshipGuardian, RelationshipOther:
		return r, nil
	}
	return "", NewValidationError("relationship", "must be one of parent, father, mother, guardian, other")
}

// GuardianLink grants a guardian read access to a player's record.
// Links are created only by redeeming an access code and never expire.
type GuardianLink struct {
	GuardianID   AccountID
	PlayerID     AccountID
	Relationship Relationship
	CreatedAt    time.Time
}
