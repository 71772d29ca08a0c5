package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newAchievementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "achievement",
		Aliases: []string{"ach"},
		Short:   "Achievement submission and review commands",
	}

	cmd.AddCommand(newAchievementSubmitCmd())
	cmd.AddCommand(newAchievementPendingCmd())
	cmd.AddCommand(newAchievementListCmd())
	cmd.AddCommand(newAchievementGetCmd())
	cmd.AddCommand(newAchievementReviewCmd())
	cmd.AddCommand(newAchievementStatsCmd())

	return cmd
}

func newAchievementSubmitCmd() *cobra.Command {
	var req struct {
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

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an achievement for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Achievement

			if err := client.Post(cmd.Context(), "/api/v1/achievements", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.PlayerID, "player", "", "Player ID (defaults to you)")
	cmd.Flags().StringVar(&req.Category, "category", "", "Batting, Bowling, Fielding, All-Round, Team, Career, Special (required)")
	cmd.Flags().StringVar(&req.Tier, "tier", "", "Bronze, Silver, Gold, Platinum, Diamond (required)")
	cmd.Flags().StringVar(&req.AchievementDate, "date", "", "Date achieved, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&req.Title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description (required)")
	cmd.Flags().StringVar(&req.Opponent, "opponent", "", "Opposition team")
	cmd.Flags().StringVar(&req.Venue, "venue", "", "Ground")
	cmd.Flags().StringVar(&req.Value, "value", "", "Figures, e.g. 112* or 5/23")
	cmd.Flags().StringVar(&req.SubmissionNotes, "notes", "", "Notes for the reviewer")
	for _, name := range []string{"category", "tier", "date", "title", "description"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newAchievementPendingCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List achievements awaiting review (coach/admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/achievements/pending"
			if category != "" {
				path += "?" + url.Values{"category": {category}}.Encode()
			}

			var result []Achievement
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only this category")

	return cmd
}

func newAchievementListCmd() *cobra.Command {
	var player, category, tier, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for key, val := range map[string]string{
				"player_id": player,
				"category":  category,
				"tier":      tier,
				"status":    status,
			} {
				if val != "" {
					q.Set(key, val)
				}
			}

			path := "/api/v1/achievements"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var result []Achievement
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&player, "player", "", "Player ID")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().StringVar(&tier, "tier", "", "Tier")
	cmd.Flags().StringVar(&status, "status", "", "pending, approved, rejected")

	return cmd
}

func newAchievementGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single achievement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Achievement

			if err := client.Get(cmd.Context(), "/api/v1/achievements/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newAchievementReviewCmd() *cobra.Command {
	var approve, reject bool
	var feedback string

	cmd := &cobra.Command{
		Use:   "review <id>",
		Short: "Approve or reject a pending achievement (coach/admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if approve == reject {
				return fmt.Errorf("exactly one of --approve or --reject is required")
			}

			status := "approved"
			if reject {
				status = "rejected"
			}

			req := map[string]string{
				"status":   status,
				"feedback": feedback,
			}
			var result Achievement

			path := "/api/v1/achievements/" + url.PathEscape(args[0]) + "/review"
			if err := client.Put(cmd.Context(), path, req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&approve, "approve", false, "Approve the achievement")
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject the achievement")
	cmd.Flags().StringVar(&feedback, "feedback", "", "Feedback for the player")

	return cmd
}

func newAchievementStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <player-id>",
		Short: "Show approved achievement stats for a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StatsSummary

			if err := client.Get(cmd.Context(), "/api/v1/achievements/stats/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
