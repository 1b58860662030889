package commands

import (
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/spendlens/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:     "spendlens",
		Short:   "Import bank exports, categorize spending and see where it goes",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().String("dir", defaultDataDir(), "data directory")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountCommand(),
		newImportCommand(),
		newCategorizeCommand(),
		newCategoryCommand(),
		newInsightsCommand(),
		newSearchCommand(),
		newExportCommand(),
		newRestoreCommand(),
		newActivityCommand(),
	)

	return rootCmd
}

func defaultDataDir() string {
	if dir := os.Getenv("SPENDLENS_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ".spendlens"
	}
	return filepath.Join(base, "spendlens")
}
