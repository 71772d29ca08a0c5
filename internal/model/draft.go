package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Field length limits for submitted achievements
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxShortFieldLength  = 120
	MaxNotesLength       = 1000
)

// AchievementDraft is the raw submission for a new achievement, before
// enumerations are parsed.
type AchievementDraft struct {
	Category        string
	Tier            string
	AchievementDate time.Time
	Title           string
	Description     string
	Opponent        string
	Venue           string
	Value           string
	SubmissionNotes string
}

// Validate checks the draft against the data model and returns a pending
// Achievement with parsed enums and trimmed text. ID, PlayerID, SubmittedBy
// and SubmittedAt are left for the caller to fill.
func (d AchievementDraft) Validate(now time.Time) (*Achievement, error) {
	category, err := ParseCategory(d.Category)
	if err != nil {
		return nil, err
	}
	tier, err := ParseTier(d.Tier)
	if err != nil {
		return nil, err
	}

	if d.AchievementDate.IsZero() {
		return nil, NewValidationError("achievement_date", "is required")
	}
	if d.AchievementDate.After(now) {
		return nil, NewValidationError("achievement_date", "must not be in the future")
	}

	title := strings.TrimSpace(d.Title)
	description := strings.TrimSpace(d.Description)
	if title == "" {
		return nil, NewValidationError("title", "is required")
	}
	if description == "" {
		return nil, NewValidationError("description", "is required")
	}

	checks := []struct {
		field string
		value string
		max   int
	}{
		{"title", title, MaxTitleLength},
		{"description", description, MaxDescriptionLength},
		{"opponent", d.Opponent, MaxShortFieldLength},
		{"venue", d.Venue, MaxShortFieldLength},
		{"value", d.Value, MaxShortFieldLength},
		{"submission_notes", d.SubmissionNotes, MaxNotesLength},
	}
	for _, c := range checks {
		if utf8.RuneCountInString(c.value) > c.max {
			return nil, NewValidationError(c.field, "is too long")
		}
	}

	return &Achievement{
		Category:        category,
		Tier:            tier,
		Status:          StatusPending,
		AchievementDate: d.AchievementDate,
		Title:           title,
		Description:     description,
		Opponent:        strings.TrimSpace(d.Opponent),
		Venue:           strings.TrimSpace(d.Venue),
		Value:           strings.TrimSpace(d.Value),
		SubmissionNotes: strings.TrimSpace(d.SubmissionNotes),
	}, nil
}
