package model

import "maps"

// AchievementStatsSummary is derived from a player's approved achievements.
// It never includes pending or rejected records.
type AchievementStatsSummary struct {
	PlayerID   AccountID
	Total      int
	ByTier     map[Tier]int
	ByCategory map[Category]int
	Latest     *Achievement // most recently dated approved achievement
}

// NewAchievementStatsSummary returns an empty summary with every tier present
func NewAchievementStatsSummary(playerID AccountID) *AchievementStatsSummary {
	byTier := make(map[Tier]int, len(Tiers))
	for _, t := range Tiers {
		byTier[t] = 0
	}
	return &AchievementStatsSummary{
		PlayerID:   playerID,
		ByTier:     byTier,
		ByCategory: make(map[Category]int),
	}
}

// Add counts an approved achievement into the summary.
// Non-approved achievements are ignored.
func (s *AchievementStatsSummary) Add(a *Achievement) {
	if a.Status != StatusApproved {
		return
	}
	s.Total++
	s.ByTier[a.Tier]++
	s.ByCategory[a.Category]++
	if s.Latest == nil || a.AchievementDate.After(s.Latest.AchievementDate) ||
		(a.AchievementDate.Equal(s.Latest.AchievementDate) && a.SubmittedAt.After(s.Latest.SubmittedAt)) {
		s.Latest = a
	}
}

// Clone returns a deep copy of the summary
func (s *AchievementStatsSummary) Clone() *AchievementStatsSummary {
	out := *s
	out.ByTier = maps.Clone(s.ByTier)
	out.ByCategory = maps.Clone(s.ByCategory)
	if s.Latest != nil {
		latest := *s.Latest
		out.Latest = &latest
	}
	return &out
}
