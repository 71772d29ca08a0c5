package storage

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/mcoot/crickettalent/internal/model"
)

// Storage defines the interface for data persistence.
//
// The two trust-sensitive writes, RedeemAccessCode and TransitionAchievement,
// are compare-and-set operations: each implementation performs the
// precondition check and the write as one atomic step in the backing store,
// so they stay correct when requests are served by several processes.
type Storage interface {
	// Account operations
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)

	// Access code operations

	// CreateAccessCode stores a new code and, in the same atomic step,
	// invalidates any outstanding code of the same owner by moving its
	// ExpiresAt to code.CreatedAt. Returns model.ErrCodeTaken if the code
	// string already exists.
	CreateAccessCode(ctx context.Context, code *model.AccessCode) error
	GetAccessCode(ctx context.Context, code string) (*model.AccessCode, error)
	// GetOutstandingAccessCode returns the owner's unconsumed, unexpired code
	GetOutstandingAccessCode(ctx context.Context, owner model.AccountID, now time.Time) (*model.AccessCode, error)
	// RedeemAccessCode consumes the code and creates the guardian link
	// atomically. Fails with ErrNotFound, ErrExpired, ErrAlreadyConsumed or
	// ErrDuplicateLink, in that order of precedence, leaving no partial state.
	RedeemAccessCode(ctx context.Context, code string, guardian model.AccountID, rel model.Relationship, now time.Time) (*model.GuardianLink, error)
	// DeleteExpiredAccessCodes removes unconsumed codes whose expiry is at
	// or before cutoff
	DeleteExpiredAccessCodes(ctx context.Context, cutoff time.Time) (int, error)

	// Guardian link operations
	ListLinksForAccount(ctx context.Context, id model.AccountID) ([]*model.GuardianLink, error)
	LinkExists(ctx context.Context, guardian, player model.AccountID) (bool, error)

	// Achievement operations
	CreateAchievement(ctx context.Context, a *model.Achievement) error
	GetAchievement(ctx context.Context, id model.AchievementID) (*model.Achievement, error)
	// ListAchievements returns matches ordered oldest-submitted first
	ListAchievements(ctx context.Context, filter model.AchievementFilter) ([]*model.Achievement, error)
	// TransitionAchievement moves a pending achievement to a terminal status
	// and bumps the owner's stats version. Fails with ErrNotFound or
	// ErrInvalidTransition if the achievement is no longer pending.
	TransitionAchievement(ctx context.Context, id model.AchievementID, to model.AchievementStatus, reviewer model.AccountID, at time.Time, feedback string) (*model.Achievement, error)
	// StatsVersion changes whenever one of the player's achievements is reviewed
	StatsVersion(ctx context.Context, player model.AccountID) (int64, error)
}

// SortAchievements orders achievements oldest-submitted first, by ID on ties
func SortAchievements(list []*model.Achievement) {
	slices.SortStableFunc(list, func(a, b *model.Achievement) int {
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortLinks orders links oldest first, then by guardian and player
func SortLinks(links []*model.GuardianLink) {
	slices.SortFunc(links, func(a, b *model.GuardianLink) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if c := strings.Compare(string(a.GuardianID), string(b.GuardianID)); c != 0 {
			return c
		}
		return strings.Compare(string(a.PlayerID), string(b.PlayerID))
	})
}
