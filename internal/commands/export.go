package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/spendlens/internal/export"
	"github.com/cleared-dev/spendlens/internal/logger"
)

func newExportCommand() *cobra.Command {
	var kind, account, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored transactions as CSV",
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

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			problems, err := a.ledger.Export(cmd.Context(), w, sc)
			if err != nil {
				return err
			}
			log := logger.FromContext(cmd.Context())
			for _, p := range problems {
				log.Warn().Str("transaction", p.TransactionID).Msg(p.Description)
			}
			if len(problems) > 0 {
				warn.Fprintf(cmd.ErrOrStderr(), "%d exported rows need attention\n", len(problems))
			}
			return nil
		},
	}

	addScopeFlags(cmd, &kind, &account)
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write instead of stdout")
	return cmd
}

func newRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <export.csv>",
		Short: "Load a transaction export back into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			name := filepath.Base(args[0])
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			txns, err := export.ReadTransactions(f)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			results, err := a.ledger.Restore(cmd.Context(), a.cfg.User.ID, txns, name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			for _, res := range results {
				fmt.Fprintln(cmd.OutOrStdout(), res.Activity.Message)
			}
			return nil
		},
	}
}
