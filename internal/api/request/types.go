package request

import (
	"strings"
	"time"

	"github.com/mcoot/crickettalent/internal/model"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// RegisterRequest is the request body for registering an account
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RedeemCodeRequest is the request body for redeeming an access code
type RedeemCodeRequest struct {
	Relationship string `json:"relationship,omitempty"`
}

// SubmitAchievementRequest is the request body for submitting an achievement
type SubmitAchievementRequest struct {
	PlayerID        string `json:"player_id,omitempty"`
	Category        string `json:"category"`
	Tier            string `json:"tier"`
	AchievementDate string `json:"achievement_date"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Opponent        string `json:"opponent,omitempty"`
	Venue           string `json:"venue,omitempty"`
	Value           string `json:"value,omitempty"`
	SubmissionNotes string `json:"submission_notes,omitempty"`
}

// Draft converts the request into an unvalidated achievement draft.
// The date accepts either YYYY-MM-DD or RFC 3339.
func (r SubmitAchievementRequest) Draft() (model.AchievementDraft, error) {
	date, err := ParseDate(r.AchievementDate)
	if err != nil {
		return model.AchievementDraft{}, err
	}
	return model.AchievementDraft{
		Category:        r.Category,
		Tier:            r.Tier,
		AchievementDate: date,
		Title:           r.Title,
		Description:     r.Description,
		Opponent:        r.Opponent,
		Venue:           r.Venue,
		Value:           r.Value,
		SubmissionNotes: r.SubmissionNotes,
	}, nil
}

// ReviewRequest is the request body for reviewing an achievement
type ReviewRequest struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback,omitempty"`
}

// ParseDate parses a wire date. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, model.NewValidationError("achievement_date", "must be YYYY-MM-DD or RFC 3339")
	}
	return t.UTC(), nil
}
