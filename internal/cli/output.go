package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Account:
		o.printAccount(v)
	case AuthResult:
		o.printAuthResult(v)
	case AccessCode:
		o.printAccessCode(v)
	case RedeemResult:
		o.printRedeemResult(v)
	case []GuardianLink:
		o.printLinks(v)
	case Achievement:
		o.printAchievement(v)
	case []Achievement:
		o.printAchievements(v)
	case StatsSummary:
		o.printStats(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Account response type (matches API)
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
}

// AuthResult combines account and token
type AuthResult struct {
	Account   Account   `json:"account"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccessCode response type
type AccessCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GuardianLink response type
type GuardianLink struct {
	GuardianID   string    `json:"guardian_id"`
	PlayerID     string    `json:"player_id"`
	Relationship string    `json:"relationship"`
	CreatedAt    time.Time `json:"created_at"`
}

// RedeemResult response type
type RedeemResult struct {
	Link   GuardianLink `json:"link"`
	Player struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"player"`
}

// Achievement response type
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

// StatsSummary response type
type StatsSummary struct {
	PlayerID   string         `json:"player_id"`
	Total      int            `json:"total"`
	ByTier     map[string]int `json:"by_tier"`
	ByCategory map[string]int `json:"by_category"`
	Latest     *Achievement   `json:"latest"`
}

// HealthResult is the health response plus client-side timing
type HealthResult struct {
	Status    string `json:"status"`
	Server    string `json:"server"`
	LatencyMS int64  `json:"latency_ms"`
}

// tierOrder lists tiers lowest first for display
var tierOrder = []string{"Bronze", "Silver", "Gold", "Platinum", "Diamond"}

func (o *Output) printAccount(a Account) {
	fmt.Printf("Account: %s (%s)\n", a.DisplayName, a.ID)
	fmt.Printf("Username: %s\n", a.Username)
	fmt.Printf("Kind: %s\n", a.Kind)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printAccount(a.Account)
	fmt.Printf("Token expires: %s\n", a.ExpiresAt.Local().Format(time.RFC1123))
}

func (o *Output) printAccessCode(c AccessCode) {
	fmt.Printf("Code: %s\n", c.Code)
	fmt.Printf("Expires: %s\n", c.ExpiresAt.Local().Format(time.RFC1123))
}

func (o *Output) printRedeemResult(r RedeemResult) {
	fmt.Printf("Linked to %s (%s) as %s\n", r.Player.DisplayName, r.Player.ID, r.Link.Relationship)
}

func (o *Output) printLinks(links []GuardianLink) {
	if len(links) == 0 {
		fmt.Println("No links")
		return
	}
	fmt.Printf("Links (%d):\n", len(links))
	for _, l := range links {
		fmt.Printf("  - guardian %s -> player %s (%s)\n", l.GuardianID, l.PlayerID, l.Relationship)
	}
}

func (o *Output) printAchievement(a Achievement) {
	fmt.Printf("Achievement: %s (%s)\n", a.Title, a.ID)
	fmt.Printf("Player: %s\n", a.PlayerID)
	fmt.Printf("Category: %s, Tier: %s\n", a.Category, a.Tier)
	fmt.Printf("Date: %s\n", a.AchievementDate)
	if a.Value != "" {
		fmt.Printf("Figures: %s\n", a.Value)
	}
	if a.Opponent != "" || a.Venue != "" {
		fmt.Printf("Match: vs %s at %s\n", valueOr(a.Opponent, "?"), valueOr(a.Venue, "?"))
	}
	fmt.Printf("Status: %s\n", a.Status)
	if a.ReviewedBy != nil {
		fmt.Printf("Reviewed by: %s\n", *a.ReviewedBy)
	}
	if a.Feedback != "" {
		fmt.Printf("Feedback: %s\n", a.Feedback)
	}
	fmt.Printf("\n%s\n", a.Description)
}

func (o *Output) printAchievements(list []Achievement) {
	if len(list) == 0 {
		fmt.Println("No achievements")
		return
	}
	for _, a := range list {
		fmt.Printf("%s  %-9s %-9s %-8s %s  %s\n", a.ID, a.Status, a.Category, a.Tier, a.AchievementDate, a.Title)
	}
}

func (o *Output) printStats(s StatsSummary) {
	fmt.Printf("Player: %s\n", s.PlayerID)
	fmt.Printf("Approved achievements: %d\n", s.Total)

	fmt.Println("\nBy tier:")
	for _, t := range tierOrder {
		fmt.Printf("  %-9s %d\n", t, s.ByTier[t])
	}

	if len(s.ByCategory) > 0 {
		categories := make([]string, 0, len(s.ByCategory))
		for c := range s.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)

		fmt.Println("\nBy category:")
		for _, c := range categories {
			fmt.Printf("  %-9s %d\n", c, s.ByCategory[c])
		}
	}

	if s.Latest != nil {
		fmt.Printf("\nLatest: %s (%s, %s)\n", s.Latest.Title, s.Latest.Tier, s.Latest.AchievementDate)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Server: %s\n", h.Server)
	fmt.Printf("Status: %s (%dms)\n", h.Status, h.LatencyMS)
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
