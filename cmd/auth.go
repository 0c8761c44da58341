package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/calassist/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize calassist to access a Google Calendar account",
		Long: `Run the Google OAuth flow for an account.

Visit the printed URL, grant calendar access and paste the authorization
code back. The token is stored per account and refreshed automatically.`,
		Args: cobra.NoArgs,
		RunE: runAuth,
	}

	addGoogleFlags(cmd)
	cmd.Flags().String("code", "", "Authorization code (skips the interactive prompt)")

	return cmd
}

func runAuth(cmd *cobra.Command, _ []string) error {
	cfg := googleConfig(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	account := accountFlag(cmd)
	store := google.NewFileTokenProvider()
	out := cmd.OutOrStdout()

	code, _ := cmd.Flags().GetString("code")
	if code == "" {
		fmt.Fprintf(out, "To authorize calendar access for account %q, visit this URL in your browser:\n\n%s\n\n", account, google.GetAuthURL(cfg, account))
		fmt.Fprint(out, "Paste the authorization code: ")

		scanner := bufio.NewScanner(cmd.InOrStdin())
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			return fmt.Errorf("no authorization code provided")
		}
		code = scanner.Text()
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code provided")
	}

	if err := google.SaveToken(cmd.Context(), cfg, store, account, code); err != nil {
		return err
	}

	fmt.Fprintf(out, "Token saved for account %q in %s\n", account, store.Dir())
	return nil
}
