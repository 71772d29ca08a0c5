package model

import (
	"strings"
	"time"
)

// AchievementID uniquely identifies an achievement record
type AchievementID string

// Category classifies what kind of performance an achievement records
type Category string

const (
	CategoryBatting  Category = "Batting"
	CategoryBowling  Category = "Bowling"
	CategoryFielding Category = "Fielding"
	CategoryAllRound Category = "All-Round"
	CategoryTeam     Category = "Team"
	CategoryCareer   Category = "Career"
	CategorySpecial  Category = "Special"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryBatting, CategoryBowling, CategoryFielding, CategoryAllRound,
	CategoryTeam, CategoryCareer, CategorySpecial,
}

// ParseCategory matches a category name case-insensitively
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", NewValidationError("category", "must be one of Batting, Bowling, Fielding, All-Round, Team, Career, Special")
}

// Tier is an ordered badge level used for display and ranking only
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
	TierDiamond  Tier = "Diamond"
)

// Tiers lists every tier from lowest to highest
var Tiers = []Tier{TierBronze, TierSilver, TierGold, TierPlatinum, TierDiamond}

// ParseTier matches a tier name case-insensitively
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(s)
	for _, t := range Tiers {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", NewValidationError("tier", "must be one of Bronze, Silver, Gold, Platinum, Diamond")
}

// Rank returns the tier's position (Bronze = 1 ... Diamond = 5), or 0 if unknown
func (t Tier) Rank() int {
	for i, tt := range Tiers {
		if tt == t {
			return i + 1
		}
	}
	return 0
}

// AchievementStatus is the review state of an achievement
type AchievementStatus string

const (
	StatusPending  AchievementStatus = "pending"
	StatusApproved AchievementStatus = "approved"
	StatusRejected AchievementStatus = "rejected"
)

// ParseStatus validates a status string (case-insensitive)
func ParseStatus(s string) (AchievementStatus, error) {
	switch st := AchievementStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", NewValidationError("status", "must be one of pending, approved, rejected")
}

// IsTerminal reports whether no further transitions are allowed
func (s AchievementStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Achievement is a player-submitted claim that must be reviewed before it
// counts toward public statistics.
// Invariant: ReviewedBy and ReviewedAt are nil iff Status is pending.
type Achievement struct {
	ID              AchievementID
	PlayerID        AccountID
	SubmittedBy     AccountID
	Category        Category
	Tier            Tier
	Status          AchievementStatus
	AchievementDate time.Time
	Title           string
	Description     string
	Opponent        string
	Venue           string
	Value           string // e.g. "112*" or "5/23"
	SubmissionNotes string
	SubmittedAt     time.Time

	ReviewedBy *AccountID
	ReviewedAt *time.Time
	Feedback   string
}

// IsPending reports whether the achievement is awaiting review
func (a *Achievement) IsPending() bool {
	return a.Status == StatusPending
}

// Reviewed returns a copy of the achievement moved to the given terminal status
func (a *Achievement) Reviewed(status AchievementStatus, reviewer AccountID, at time.Time, feedback string) *Achievement {
	out := *a
	out.Status = status
	out.ReviewedBy = &reviewer
	out.ReviewedAt = &at
	out.Feedback = feedback
	return &out
}

// AchievementFilter selects achievements in store queries.
// Zero-valued fields do not filter.
type AchievementFilter struct {
	PlayerID AccountID
	Category Category
	Tier     Tier
	Status   AchievementStatus
}

// Matches reports whether the achievement satisfies the filter
func (f AchievementFilter) Matches(a *Achievement) bool {
	if f.PlayerID != "" && a.PlayerID != f.PlayerID {
		return false
	}
	if f.Category != "" && a.Category != f.Category {
		return false
	}
	if f.Tier != "" && a.Tier != f.Tier {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}
