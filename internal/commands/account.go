package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/spendlens/internal/accounts"
	"github.com/cleared-dev/spendlens/internal/id"
	"github.com/cleared-dev/spendlens/internal/model"
)

func newAccountCommand() *cobra.Command {
	accountCmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts", "institution"},
		Short:   "Manage bank and credit card institutions",
	}
	accountCmd.AddCommand(newAccountAddCommand(), newAccountListCommand(), newAccountImportCommand())
	return accountCmd
}

func newAccountAddCommand() *cobra.Command {
	var (
		kind    string
		aliases model.Aliases
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an institution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := accounts.ParseType(kind)
			if err != nil {
				return err
			}
			acct, err := accounts.New(a.cfg.User.ID, t, args[0], aliases, a.now())
			if err != nil {
				return err
			}
			if err := a.ledger.AddAccount(cmd.Context(), acct); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", acct.Type, acct.Name, id.Short(acct.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", "bank", "bank or credit")
	cmd.Flags().StringVar(&aliases.Nickname, "nickname", "", "short name")
	cmd.Flags().StringVar(&aliases.Last4, "last4", "", "last four digits of the account number")
	cmd.Flags().StringSliceVar(&aliases.SwitchTokens, "token", nil, "extra words to find the account by")

	return cmd
}

func newAccountListCommand() *cobra.Command {
	var (
		asCSV    bool
		typeName string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List institutions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			accts, err := a.accounts(cmd.Context())
			if err != nil {
				return err
			}
			list := accts.All()
			if typeName != "" {
				t, err := accounts.ParseType(typeName)
				if err != nil {
					return err
				}
				list = accts.ByType(t)
				if t == model.AccountTypeCreditCard {
					list = append(list, accts.ByType(model.AccountTypeCredit)...)
				}
			}
			if asCSV {
				return accounts.WriteAccounts(cmd.OutOrStdout(), list)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tNAME\tMATCHES")
			for _, acct := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", acct.ID, acct.Type, acct.Name, accounts.MatchText(acct))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV suitable for account import")
	cmd.Flags().StringVar(&typeName, "type", "", "only list institutions of this type (bank or credit)")
	return cmd
}

func newAccountImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Add or update institutions from a CSV written by account list --csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			rows, err := accounts.ReadAccounts(f)
			if err != nil {
				return err
			}
			existing, err := a.accounts(cmd.Context())
			if err != nil {
				return err
			}

			now := a.now()
			for _, row := range rows {
				acct := row
				if prev, ok := existing.Get(row.ID); ok {
					acct.UserID = prev.UserID
					acct.CreatedAt = prev.CreatedAt
					acct.UpdatedAt = now
				} else {
					acct, err = accounts.New(a.cfg.User.ID, row.Type, row.Name, row.Aliases, now)
					if err != nil {
						return err
					}
				}
				if err := a.ledger.AddAccount(cmd.Context(), acct); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d institutions\n", len(rows))
			return nil
		},
	}
}
