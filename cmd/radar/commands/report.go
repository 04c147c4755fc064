// ABOUTME: CLI command to run the weekly report pipeline once
// ABOUTME: Classifies both periods, detects trends and sub-themes, and writes the JSON report
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/harper/feedback-radar/internal/pipeline"
	"github.com/harper/feedback-radar/internal/stack"
	"github.com/spf13/cobra"
)

var reportOut string

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <input.json>",
		Short: "Build a trend report from two periods of feedback",
		Long: `Build a trend report from an input file of the form
{"this": [...items], "prev": [...items]}.

Items are classified, negative share is compared per cohort, and
recurring issues are grouped into sub-themes. The report is JSON; with
--format table a short summary is printed instead.

Examples:
  radar report week42.json
  radar report week42.json --out reports/week42.json`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	cmd.Flags().StringVarP(&reportOut, "out", "o", "", "Write the report to this file instead of stdout")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	report, err := buildReport(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if reportOut != "" {
		if err := pipeline.SaveReport(reportOut, report); err != nil {
			return err
		}
		logger.Info("report written", "path", reportOut, "run_id", report.RunID)
		if !useJSON(false) && !quiet {
			printSummary(cmd.OutOrStdout(), report)
		}
		return nil
	}

	if useJSON(true) {
		return pipeline.WriteReport(cmd.OutOrStdout(), report)
	}
	printSummary(cmd.OutOrStdout(), report)
	return nil
}

// buildReport loads input and runs the pipeline with a fresh component
// set, so each run gets its own LLM budget.
func buildReport(ctx context.Context, inputPath string) (*pipeline.Report, error) {
	input, err := pipeline.LoadInput(inputPath)
	if err != nil {
		return nil, err
	}

	a, err := openApp(ctx, stack.Options{Classifiers: true})
	if err != nil {
		return nil, err
	}
	defer a.Close()

	p, err := a.Pipeline()
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, input)
}

func printSummary(w io.Writer, r *pipeline.Report) {
	totals := r.Trends.Totals
	fmt.Fprintf(w, "Run %s (%s)\n", r.RunID, r.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Items: %d this period, %d previous (%+d)\n",
		totals.This.Total, totals.Prev.Total, totals.Delta.Total)

	fmt.Fprintf(w, "\nSpikes: %d\n", len(r.Trends.Spikes))
	for _, e := range r.Trends.Spikes {
		fmt.Fprintf(w, "  %s  %+.1fpp  (%.0f%% → %.0f%%, n=%d)\n",
			e.Cohort, e.ChangePp, e.PrevRatio*100, e.ThisRatio*100, e.ThisTotal)
	}
	fmt.Fprintf(w, "Drops: %d\n", len(r.Trends.Drops))
	for _, e := range r.Trends.Drops {
		fmt.Fprintf(w, "  %s  %+.1fpp  (%.0f%% → %.0f%%, n=%d)\n",
			e.Cohort, e.ChangePp, e.PrevRatio*100, e.ThisRatio*100, e.PrevTotal)
	}

	if st := r.SubThemes; st != nil {
		if st.Skipped != "" {
			fmt.Fprintf(w, "\nSub-themes: skipped (%s)\n", st.Skipped)
		} else {
			fmt.Fprintf(w, "\nSub-themes in %s: k=%d, score %.3f\n", st.Topic, st.K, st.Score)
			for _, c := range st.Clusters {
				fmt.Fprintf(w, "  [%d] %s (%d)\n", c.ID, c.Label, c.Count)
			}
		}
		for _, n := range st.Notable {
			fmt.Fprintf(w, "  notable: %s %d/%d negative (%.1f%%)\n",
				n.Topic, n.NegativeCount, n.TotalInTopic, n.NegativeRatio)
		}
	}

	if r.Tags != nil {
		fmt.Fprintf(w, "\nDetail tags: %d/%d items tagged\n", r.Tags.TaggedItems, r.Tags.TotalItems)
	}
	fmt.Fprintf(w, "\nLLM calls: %d (failures %d, denied %d, tokens %d)\n",
		r.Usage.Calls, r.Usage.Failures, r.Usage.Denied, r.Usage.TotalTokens())
}
