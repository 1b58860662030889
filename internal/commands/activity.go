package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/spendlens/internal/activity"
)

func newActivityCommand() *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent imports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.ledger.Activity(cmd.Context(), a.cfg.User.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asCSV {
				return activity.Write(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No activity yet.")
				return nil
			}
			loc := a.cfg.Location()
			for _, e := range entries {
				heading.Fprint(out, e.Datetime.In(loc).Format("2006-01-02 15:04"))
				fmt.Fprintf(out, "  %s\n", e.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV")
	return cmd
}
