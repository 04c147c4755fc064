// ABOUTME: CLI command to search the labeled example index
// ABOUTME: Shows the nearest examples to a query with their labels and similarity
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/harper/feedback-radar/internal/stack"
	"github.com/spf13/cobra"
)

var (
	searchLimit int
)

// NewSearchCmd creates search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search labeled examples",
		Long: `Search the example index for the texts closest to a query.

Useful for checking why an item was labeled the way it was.

Examples:
  radar search "구독 해지"
  radar search --limit 10 "환불"
  radar search --format json "감사합니다"`,
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 5, "Maximum results to return")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}
	ctx := cmd.Context()
	query := args[0]

	a, err := openApp(ctx, stack.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.Store.SearchSimilar(ctx, query, searchLimit)
	if err != nil {
		return fmt.Errorf("searching examples: %w", err)
	}

	if useJSON(false) {
		return printJSON(cmd.OutOrStdout(), results)
	}

	if len(results) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No examples found for query: %s\n", query)
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SIMILARITY\tCATEGORY\tID\tTEXT\n")
	fmt.Fprintf(w, "----------\t--------\t--\t----\n")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n",
			r.Similarity(), r.Category(), truncate(r.ID, 25), truncate(r.Text, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d result(s)\n", len(results))
	}
	return nil
}
