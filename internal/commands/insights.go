package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/spendlens/internal/insights"
)

func newInsightsCommand() *cobra.Command {
	var (
		kind, account string
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Show spend insights for the last three months with data",
		Args:  cobra.NoArgs,
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
			report, err := a.ledger.Insights(cmd.Context(), sc, a.now().In(a.cfg.Location()))
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}

	addScopeFlags(cmd, &kind, &account)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(w io.Writer, r *insights.Report) error {
	heading.Fprintf(w, "%s to %s", r.Window.StartMonth, r.Window.EndMonth)
	fmt.Fprintf(w, " (%d months, %d transactions)\n", r.Window.Months, r.Totals.TxCount)
	fmt.Fprintf(w, "Spend %s  Payments %s  Net %s\n",
		formatCents(r.Totals.SpendCents), formatCents(r.Totals.PaymentCents), formatSigned(r.Totals.NetCents))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if len(r.TopCategories) > 0 {
		fmt.Fprintln(w)
		heading.Fprintln(w, "Top categories")
		for _, c := range r.TopCategories {
			fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t%d tx\t\n", c.CategoryPath, formatCents(c.SpendCents), c.PctOfSpend, c.TxCount)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.MonthTrend) > 0 {
		fmt.Fprintln(w)
		heading.Fprintln(w, "Months")
		fmt.Fprintf(tw, "month\tspend\tpayments\tnet\t\n")
		for _, m := range r.MonthTrend {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", m.Month, formatCents(m.SpendCents), formatCents(m.PaymentCents), formatCents(m.NetCents))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.Recurring) > 0 {
		fmt.Fprintln(w)
		heading.Fprintln(w, "Recurring")
		for _, rc := range r.Recurring {
			fmt.Fprintf(tw, "%s\t%d months\tavg %s\ttotal %s\t\n", rc.Merchant, rc.MonthsSeen, formatCents(rc.AvgMonthlySpendCents), formatCents(rc.TotalSpendCents))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if d := r.Duplicates; d.SignatureCount > 0 {
		fmt.Fprintln(w)
		warn.Fprintf(w, "Possible duplicates: %d groups, %d rows, %s spend\n", d.SignatureCount, d.RowCount, formatCents(d.SpendImpactCents))
	}
	return nil
}
