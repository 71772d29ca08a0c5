package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newLinksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Guardian link commands",
	}

	cmd.AddCommand(newLinksListCmd())

	return cmd
}

func newLinksListCmd() *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List guardian links for your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/links"
			if accountID != "" {
				path += "?" + url.Values{"account_id": {accountID}}.Encode()
			}

			var result []GuardianLink
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID to list (admins only)")

	return cmd
}
