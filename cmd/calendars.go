package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/logging"
)

func newCalendarsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars an account can access",
		Args:  cobra.NoArgs,
		RunE:  runCalendars,
	}

	addGoogleFlags(cmd)

	return cmd
}

func runCalendars(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd, cmd.ErrOrStderr())

	rt, err := startRuntime(cmd.Context(), runtimeOptions{Logger: logger, Google: googleConfig(cmd)})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("shutdown failed", logging.Err(err))
		}
	}()

	backend, err := rt.sc.BackendForAccount(accountFlag(cmd))
	if err != nil {
		return err
	}

	calendars, err := backend.ListCalendars(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list calendars: %w", err)
	}

	return printCalendars(cmd.OutOrStdout(), calendars)
}

// printCalendars writes one calendar per line, the primary one marked.
func printCalendars(w io.Writer, calendars []calendar.CalendarInfo) error {
	if len(calendars) == 0 {
		_, err := fmt.Fprintln(w, "No calendars found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tACCESS\tPRIMARY")
	for _, c := range calendars {
		primary := ""
		if c.Primary {
			primary = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Summary, c.AccessRole, primary)
	}
	return tw.Flush()
}
