package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/spendlens/internal/id"
	"github.com/cleared-dev/spendlens/internal/model"
)

func newCategoryCommand() *cobra.Command {
	categoryCmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Show and change categories",
	}
	categoryCmd.AddCommand(newCategorySetCommand(), newCategoryListCommand())
	return categoryCmd
}

func newCategorySetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <transaction-id> <path>",
		Short: `Move a transaction to a category path such as "Food > Coffee"`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.ledger.SetCategory(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", id.Short(t.ID), t.DescriptionRaw, t.CategoryPath)
			return nil
		},
	}
}

func newCategoryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the category tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			forest, err := a.ledger.Categories(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			forest.Walk(func(c model.Category, depth int) {
				indent := strings.Repeat("  ", depth)
				if depth == 0 {
					heading.Fprintf(out, "%s%s", indent, c.Name)
				} else {
					fmt.Fprintf(out, "%s%s", indent, c.Name)
				}
				if depth == 0 {
					fmt.Fprintf(out, "  (%s)\n", c.ID)
					return
				}
				fmt.Fprintf(out, "  (%s)  %s\n", c.ID, forest.PathOf(c.ID))
			})
			return nil
		},
	}
}
