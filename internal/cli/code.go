package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newCodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Guardian access code commands",
	}

	cmd.AddCommand(newCodeIssueCmd())
	cmd.AddCommand(newCodeCurrentCmd())
	cmd.AddCommand(newCodeRedeemCmd())

	return cmd
}

func newCodeIssueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue",
		Short: "Issue a new access code (replaces any outstanding code)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AccessCode

			if err := client.Post(cmd.Context(), "/api/v1/access-codes", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newCodeCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the outstanding access code",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AccessCode

			if err := client.Get(cmd.Context(), "/api/v1/access-codes/current", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newCodeRedeemCmd() *cobra.Command {
	var relationship string

	cmd := &cobra.Command{
		Use:   "redeem <code>",
		Short: "Redeem a player's access code as their guardian",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"relationship": relationship}
			var result RedeemResult

			path := "/api/v1/access-codes/" + url.PathEscape(args[0]) + "/redeem"
			if err := client.Post(cmd.Context(), path, req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&relationship, "relationship", "parent", "Relationship: parent, father, mother, guardian, other")

	return cmd
}
