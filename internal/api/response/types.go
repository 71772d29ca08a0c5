package response

import (
	"time"

	"github.com/mcoot/crickettalent/internal/api/request"
	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/services/auth"
	"github.com/mcoot/crickettalent/internal/services/linking"
)

// Account represents an account in API responses
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
}

// AccountFromModel converts a model.Account to a response Account
func AccountFromModel(a *model.Account) Account {
	return Account{
		ID:          string(a.ID),
		Username:    a.Username,
		DisplayName: a.DisplayName,
		Kind:        string(a.Kind),
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Account   Account   `json:"account"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Account:   AccountFromModel(&s.Account),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

// AccessCode is an issued access code. Only its owner ever sees it.
type AccessCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccessCodeFromModel converts model.AccessCode
func AccessCodeFromModel(c *model.AccessCode) AccessCode {
	return AccessCode{Code: c.Code, ExpiresAt: c.ExpiresAt}
}

// GuardianLink represents a guardian link
type GuardianLink struct {
	GuardianID   string    `json:"guardian_id"`
	PlayerID     string    `json:"player_id"`
	Relationship string    `json:"relationship"`
	CreatedAt    time.Time `json:"created_at"`
}

// GuardianLinkFromModel converts model.GuardianLink
func GuardianLinkFromModel(l *model.GuardianLink) GuardianLink {
	return GuardianLink{
		GuardianID:   string(l.GuardianID),
		PlayerID:     string(l.PlayerID),
		Relationship: string(l.Relationship),
		CreatedAt:    l.CreatedAt,
	}
}

// GuardianLinksFromModel converts a list of links
func GuardianLinksFromModel(links []*model.GuardianLink) []GuardianLink {
	out := make([]GuardianLink, len(links))
	for i, l := range links {
		out[i] = GuardianLinkFromModel(l)
	}
	return out
}

// PlayerIdentity is the public identity of a player
type PlayerIdentity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// RedeemResponse is the response for a successful redemption
type RedeemResponse struct {
	Link   GuardianLink   `json:"link"`
	Player PlayerIdentity `json:"player"`
}

// RedeemResponseFromResult converts a linking.RedeemResult
func RedeemResponseFromResult(r *linking.RedeemResult) RedeemResponse {
	return RedeemResponse{
		Link: GuardianLinkFromModel(r.Link),
		Player: PlayerIdentity{
			ID:          string(r.Player.ID),
			DisplayName: r.Player.DisplayName,
		},
	}
}

// Achievement represents an achievement
type Achievement struct {
	ID              string     `json:"id"`
	PlayerID        string     `json:"player_id"`
	SubmittedBy     string     `json:"submitted_by"`
	Category        string     `json:"category"`
	Tier            string     `json:"tier"`
	Status          string     `json:"status"`
	AchievementDate string     `json:"achievement_date"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Opponent        string     `json:"opponent,omitempty"`
	Venue           string     `json:"venue,omitempty"`
	Value           string     `json:"value,omitempty"`
	SubmissionNotes string     `json:"submission_notes,omitempty"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	ReviewedBy      *string    `json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	Feedback        string     `json:"feedback,omitempty"`
}

// AchievementFromModel converts model.Achievement
func AchievementFromModel(a *model.Achievement) Achievement {
	out := Achievement{
		ID:              string(a.ID),
		PlayerID:        string(a.PlayerID),
		SubmittedBy:     string(a.SubmittedBy),
		Category:        string(a.Category),
		Tier:            string(a.Tier),
		Status:          string(a.Status),
		AchievementDate: a.AchievementDate.Format(request.DateLayout),
		Title:           a.Title,
		Description:     a.Description,
		Opponent:        a.Opponent,
		Venue:           a.Venue,
		Value:           a.Value,
		SubmissionNotes: a.SubmissionNotes,
		SubmittedAt:     a.SubmittedAt,
		ReviewedAt:      a.ReviewedAt,
		Feedback:        a.Feedback,
	}
	if a.ReviewedBy != nil {
		reviewer := string(*a.ReviewedBy)
		out.ReviewedBy = &reviewer
	}
	return out
}

// AchievementsFromModel converts a list of achievements
func AchievementsFromModel(list []*model.Achievement) []Achievement {
	out := make([]Achievement, len(list))
	for i, a := range list {
		out[i] = AchievementFromModel(a)
	}
	return out
}

// StatsSummary is a player's approved achievement statistics
type StatsSummary struct {
	PlayerID   string         `json:"player_id"`
	Total      int            `json:"total"`
	ByTier     map[string]int `json:"by_tier"`
	ByCategory map[string]int `json:"by_category"`
	Latest     *Achievement   `json:"latest"`
}

// StatsSummaryFromModel converts model.AchievementStatsSummary
func StatsSummaryFromModel(s *model.AchievementStatsSummary) StatsSummary {
	out := StatsSummary{
		PlayerID:   string(s.PlayerID),
		Total:      s.Total,
		ByTier:     make(map[string]int, len(s.ByTier)),
		ByCategory: make(map[string]int, len(s.ByCategory)),
	}
	for tier, n := range s.ByTier {
		out.ByTier[string(tier)] = n
	}
	for category, n := range s.ByCategory {
		out.ByCategory[string(category)] = n
	}
	if s.Latest != nil {
		latest := AchievementFromModel(s.Latest)
		out.Latest = &latest
	}
	return out
}

// Health is the health check response
type Health struct {
	Status string `json:"status"`
}
