package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/spendlens/internal/config"
	"github.com/cleared-dev/spendlens/internal/importer"
	"github.com/cleared-dev/spendlens/internal/ledger"
	"github.com/cleared-dev/spendlens/internal/logger"
)

type importOptions struct {
	account    string
	format     string
	categorize bool
	dryRun     bool
}

func newImportCommand() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [file.csv...]",
		Short: "Import bank CSV exports (the inbox when no file is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return runImport(cmd, a, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.account, "account", "", "institution to import into (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&opts.format, "format", "", "skip header detection and use this format: "+strings.Join(importer.DefaultRegistry().Names(), ", "))
	cmd.Flags().BoolVar(&opts.categorize, "categorize", false, "categorize the imported rows afterwards")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "parse and show the files without storing anything")

	return cmd
}

// importFile is one CSV to import; inbox is set when it came from the inbox.
type importFile struct {
	path  string
	inbox string
}

func runImport(cmd *cobra.Command, a *app, args []string, opts importOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	log := logger.FromContext(ctx)

	accts, err := a.accounts(ctx)
	if err != nil {
		return err
	}
	acct, err := accts.Find(opts.account)
	if err != nil {
		return err
	}

	files, err := importFiles(a, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No CSV files to import.")
		return nil
	}

	registry := importer.DefaultRegistry()
	imported := 0
	for _, f := range files {
		name := filepath.Base(f.path)
		preview, err := registry.PreviewFile(f.path, importer.Options{
			UserID:         a.cfg.User.ID,
			InstitutionID:  acct.ID,
			SourceFileName: name,
			Currency:       a.cfg.Import.Currency,
			Format:         opts.format,
			Now:            a.now(),
		})
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		if opts.dryRun {
			printPreview(out, name, preview)
			continue
		}

		res, err := a.ledger.Import(ctx, acct.ID, preview.Transactions, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		imported += res.Count
		fmt.Fprintln(out, res.Activity.Message)

		if f.inbox != "" {
			if err := importer.MarkProcessed(f.inbox, name); err != nil {
				log.Warn().Err(err).Str("file", name).Msg("imported file left in inbox")
			}
		}
	}

	if !opts.categorize || opts.dryRun || imported == 0 {
		return nil
	}

	c, err := a.coordinator(ctx)
	if err != nil {
		return err
	}
	res, err := a.ledger.CategorizeStored(ctx, c, ledger.Scope{UserID: a.cfg.User.ID, InstitutionIDs: []string{acct.ID}})
	if res != nil {
		printSummary(out, res.Summary)
	}
	return err
}

func importFiles(a *app, args []string) ([]importFile, error) {
	if len(args) > 0 {
		files := make([]importFile, len(args))
		for i, p := range args {
			files[i] = importFile{path: p}
		}
		return files, nil
	}

	inbox := config.Resolve(a.dir, a.cfg.Import.Inbox)
	found, err := importer.Scan(inbox)
	if err != nil {
		return nil, err
	}
	files := make([]importFile, len(found))
	for i, f := range found {
		files[i] = importFile{path: f.Path, inbox: inbox}
	}
	return files, nil
}

func printPreview(w io.Writer, name string, p *importer.Preview) {
	color.New(color.FgCyan).Fprintf(w, "%s", name)
	fmt.Fprintf(w, ": %d %s rows, %s to %s\n", p.Count, p.Format, p.DateFrom, p.DateTo)
	for _, t := range p.Transactions {
		fmt.Fprintf(w, "  %s  %10s  %s\n", t.PostedAt, formatCents(t.AmountCents), t.DescriptionRaw)
	}
}
