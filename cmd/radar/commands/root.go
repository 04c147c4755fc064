// ABOUTME: Root command and global flags for the radar CLI
// ABOUTME: Maps --verbose/--quiet onto the log level and resolves --format
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string

	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "radar"})
)

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "radar",
		Short: "Feedback classification and trend radar",
		Long: `
█▀█ ▄▀█ █▀▄ ▄▀█ █▀█
█▀▄ █▀█ █▄▀ █▀█ █▀▄

Classifies customer feedback against a labeled example index, tracks
per-cohort negative share between two periods, and groups recurring
issues into sub-themes.

Configuration comes from RADAR_* environment variables, an optional
YAML file named by RADAR_CONFIG, and a .env file in the working directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Missing .env is fine; real deployments set the environment.
			_ = godotenv.Load()

			switch outputFormat {
			case "auto", "json", "table":
			default:
				return fmt.Errorf("--format must be auto, json, or table, got %q", outputFormat)
			}

			logger.SetOutput(cmd.ErrOrStderr())
			switch {
			case verbose:
				logger.SetLevel(log.DebugLevel)
			case quiet:
				logger.SetLevel(log.ErrorLevel)
			default:
				logger.SetLevel(log.InfoLevel)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print errors and results")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, json, or table")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewSeedCmd(),
		NewClassifyCmd(),
		NewSearchCmd(),
		NewReportCmd(),
		NewScheduleCmd(),
		NewStatsCmd(),
		NewExportCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command, canceling its context on SIGINT or SIGTERM
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
