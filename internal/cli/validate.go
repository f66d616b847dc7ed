package cli

import (
	"fmt"
	"os"

	"github.com/jason-s-yu/tripeaks/internal/deck"
	"github.com/jason-s-yu/tripeaks/internal/layout"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate layout and catalog files",
	}
	cmd.AddCommand(newValidateLayoutCmd(), newValidateCatalogCmd())
	return cmd
}

func newValidateLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout [path]",
		Short: "Validate a layout TOML file",
		Long: `Validate layout checks the blocker graph of a layout file. Duplicate ids,
self-blocking nodes and blocker cycles are errors; blockers naming no node
are warnings, since the rules treat them as already cleared.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return fmt.Errorf("layout file not found: %s", path)
			}

			l, err := layout.LoadFile(path)
			if err != nil {
				return fmt.Errorf("validation error: %v", err)
			}
			res := layout.Validate(l)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Validation Results:")
			fmt.Fprintln(out, "-------------------")

			if len(res.Errors) == 0 {
				fmt.Fprintf(out, "✅ Layout '%s' (%d nodes) is valid.\n", path, l.Len())
			} else {
				fmt.Fprintf(out, "❌ Layout '%s' has %d validation errors:\n", path, len(res.Errors))
				printList(out, res.Errors)
			}

			if len(res.Warnings) > 0 {
				fmt.Fprintln(out, "\nWarnings:")
				printList(out, res.Warnings)
			}

			if len(res.Errors) > 0 {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
}

func newValidateCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [path]",
		Short: "Validate a card catalog TOML file",
		Long: `Validate catalog checks that a catalog holds every rank and suit exactly
once. Each problem is listed once even when it occurs several times.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cards, err := deck.LoadCatalogFile(path)
			if err != nil {
				return fmt.Errorf("validation error: %v", err)
			}
			ok, errs := deck.ValidateCompleteSet(cards)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Validation Results:")
			fmt.Fprintln(out, "-------------------")

			if ok {
				fmt.Fprintf(out, "✅ Catalog '%s' is a complete %d-card set.\n", path, deck.FullDeckSize)
				return nil
			}

			distinct := deck.DistinctErrors(errs)
			fmt.Fprintf(out, "❌ Catalog '%s' has %d validation errors:\n", path, len(distinct))
			printList(out, distinct)
			return fmt.Errorf("validation failed")
		},
	}
}
