package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/spendlens/internal/accounts"
)

func newCategorizeCommand() *cobra.Command {
	var kind, account string

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize stored uncategorized transactions with the configured oracle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			sc, err := a.scope(ctx, kind, account)
			if err != nil {
				return err
			}
			if len(sc.InstitutionIDs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No institutions in scope.")
				return nil
			}

			c, err := a.coordinator(ctx)
			if err != nil {
				return err
			}
			res, err := a.ledger.CategorizeStored(ctx, c, sc)
			if res != nil {
				printSummary(cmd.OutOrStdout(), res.Summary)
			}
			return err
		},
	}

	addScopeFlags(cmd, &kind, &account)
	return cmd
}

func addScopeFlags(cmd *cobra.Command, kind, account *string) {
	cmd.Flags().StringVar(kind, "scope", accounts.KindAll, "institution kind: bank, credit or all")
	cmd.Flags().StringVar(account, "account", accounts.FilterAll, "one institution (name, nickname, last4 or id) or all")
}
