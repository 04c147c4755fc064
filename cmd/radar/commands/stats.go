// ABOUTME: CLI command to show index statistics
// ABOUTME: Reports example counts per category for the configured collection
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/harper/feedback-radar/internal/stack"
	"github.com/spf13/cobra"
)

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show example counts per category",
		Long:  `Show how many labeled examples the index holds for each category.`,
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, stack.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	counts, err := a.Store.CountByCategory(ctx)
	if err != nil {
		return fmt.Errorf("counting examples: %w", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	if useJSON(false) {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"collection":      a.Store.Name(),
			"embedding_model": a.Embedder.Model(),
			"total":           total,
			"by_category":     counts,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Collection: %s (%s)\n\n", a.Store.Name(), a.Embedder.Model())
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CATEGORY\tEXAMPLES\n")
	fmt.Fprintf(w, "--------\t--------\n")
	for _, category := range sortedKeys(counts) {
		fmt.Fprintf(w, "%s\t%d\n", category, counts[category])
	}
	fmt.Fprintf(w, "TOTAL\t%d\n", total)
	return w.Flush()
}
