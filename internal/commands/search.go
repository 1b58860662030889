package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSearchCommand() *cobra.Command {
	var (
		kind, account string
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Find transactions by category, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sc, err := a.scope(cmd.Context(), kind, account)
			if err != nil {
				return err
			}
			txns, err := a.ledger.Search(cmd.Context(), sc, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				fmt.Fprintln(out, "No matching transactions.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, t := range txns {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.PostedAt, formatSigned(t.AmountCents), t.CategoryPath, t.DescriptionRaw, t.ID)
			}
			return tw.Flush()
		},
	}

	addScopeFlags(cmd, &kind, &account)
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum results, 0 for all")
	return cmd
}
