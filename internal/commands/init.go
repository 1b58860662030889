package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/spendlens/internal/config"
	"github.com/cleared-dev/spendlens/internal/id"
)

type initOptions struct {
	name     string
	timezone string
	driver   string
	provider string
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a spendlens data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dataDir(cmd)
			if err != nil {
				return err
			}
			return runInit(cmd, dir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "your name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "UTC", "IANA time zone")
	cmd.Flags().StringVar(&opts.driver, "driver", config.DriverSQLite, "storage driver (sqlite or bolt)")
	cmd.Flags().StringVar(&opts.provider, "provider", config.ProviderGemini, "categorization oracle (gemini, anthropic or bayes)")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, opts initOptions) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default(opts.name, opts.timezone)
	cfg.User.ID = id.NewUser()
	cfg.Storage.Driver = opts.driver
	cfg.Oracle.Provider = opts.provider
	if cfg.Storage.Driver == config.DriverBolt {
		cfg.Storage.Path = "spendlens.bolt"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	inbox := config.Resolve(dir, cfg.Import.Inbox)
	for _, d := range []string{dir, inbox, filepath.Join(inbox, "processed")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Opening the store creates the schema.
	st, err := openStore(cfg.Storage.Driver, config.Resolve(dir, cfg.Storage.Path))
	if err != nil {
		return err
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized spendlens data at %s for %s\n", dir, cfg.User.Name)
	return nil
}
