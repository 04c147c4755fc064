// ABOUTME: CLI command to run the report pipeline on a cron schedule
// ABOUTME: Re-reads the input file each run and writes a timestamped report
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harper/feedback-radar/internal/config"
	"github.com/harper/feedback-radar/internal/pipeline"
	"github.com/harper/feedback-radar/internal/schedule"
	"github.com/spf13/cobra"
)

var (
	scheduleCron   string
	scheduleOutDir string
)

// NewScheduleCmd creates the schedule command
func NewScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule <input.json>",
		Short: "Run the report on a cron schedule",
		Long: `Run the report pipeline on a 5-field cron schedule until interrupted.

The input file is re-read before every run, so an upstream export job
can replace it between runs. Reports are written to --out-dir as
report-<timestamp>.json. The schedule defaults to RADAR_SCHEDULE and is
evaluated in RADAR_TIMEZONE.

Examples:
  radar schedule week.json
  radar schedule week.json --cron "0 9 * * 1" --out-dir reports`,
		Args: cobra.ExactArgs(1),
		RunE: runSchedule,
	}

	cmd.Flags().StringVar(&scheduleCron, "cron", "", "Cron expression (default from RADAR_SCHEDULE)")
	cmd.Flags().StringVar(&scheduleOutDir, "out-dir", "reports", "Directory for report files")

	return cmd
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	spec := scheduleCron
	if spec == "" {
		spec = cfg.Schedule
	}
	if err := os.MkdirAll(scheduleOutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	inputPath := args[0]
	job := func(ctx context.Context) error {
		report, err := buildReport(ctx, inputPath)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("report-%s.json", report.GeneratedAt.In(loc).Format("20060102-150405"))
		path := filepath.Join(scheduleOutDir, name)
		if err := pipeline.SaveReport(path, report); err != nil {
			return err
		}
		logger.Info("report written", "path", path,
			"spikes", len(report.Trends.Spikes), "drops", len(report.Trends.Drops))
		return nil
	}

	return schedule.Start(cmd.Context(), spec, loc, job, schedule.WithLogger(logger))
}
