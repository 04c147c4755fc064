// ABOUTME: Command-line benchmark runner for classification accuracy
// ABOUTME: Seeds a throwaway index (or uses the configured one), scores labeled cases, and writes JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/benchmarks/accuracy"
	"github.com/harper/feedback-radar/internal/config"
	"github.com/harper/feedback-radar/internal/seed"
	"github.com/harper/feedback-radar/internal/stack"
	"github.com/joho/godotenv"
)

func main() {
	casesPath := flag.String("cases", "", "Labeled cases (.json or .yaml). If empty, uses the built-in held-out set.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	useDB := flag.Bool("db", false, "Use the configured index instead of a fresh in-memory seed index")
	all := flag.Bool("all", false, "Include every prediction in the results, not just misses")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "benchmark"})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found (continuing anyway)", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *casesPath, *outputPath, *useDB, *all); err != nil {
		logger.Fatal("benchmark failed", "error", err)
	}
}

func run(ctx context.Context, logger *log.Logger, casesPath, outputPath string, useDB, all bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cases := accuracy.BuiltinCases()
	name := "builtin"
	if casesPath != "" {
		if cases, err = accuracy.LoadCases(casesPath); err != nil {
			return err
		}
		name = casesPath
	}

	s, err := stack.Open(ctx, cfg, stack.Options{InMemory: !useDB, Classifiers: true, Logger: logger})
	if err != nil {
		return err
	}
	defer s.Close()

	if !useDB {
		if err := seedIndex(ctx, s, cfg.ReviewedPath); err != nil {
			return err
		}
	}

	fmt.Println("========================================")
	fmt.Println("Feedback Classification Benchmark")
	fmt.Println("========================================")
	fmt.Printf("Cases: %d (%s)\n", len(cases), name)
	fmt.Printf("Embedder: %s, k=%d, threshold=%.2f, LLM: %v\n\n",
		s.Embedder.Model(), cfg.K, cfg.Threshold, cfg.LLMEnabled)

	opts := []accuracy.Option{accuracy.WithLogger(logger)}
	if s.Ensemble != nil {
		opts = append(opts, accuracy.WithComparer(s.Ensemble))
	}
	if s.Metered != nil {
		opts = append(opts, accuracy.WithUsage(s.Metered))
	}
	if all {
		opts = append(opts, accuracy.WithAllPredictions())
	}
	runner, err := accuracy.NewRunner(s.KNN, opts...)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, name, cases)
	if err != nil {
		return err
	}

	printSummary(result)

	if err := accuracy.ExportResults([]*accuracy.Result{result}, outputPath); err != nil {
		return err
	}
	fmt.Printf("\nResults written to %s\n", outputPath)
	return nil
}

func seedIndex(ctx context.Context, s *stack.Stack, reviewedPath string) error {
	set, err := seed.Examples()
	if err != nil {
		return err
	}
	examples := set.Examples
	if reviewedPath != "" {
		reviewed, err := seed.Reviewed(reviewedPath)
		if err != nil {
			return err
		}
		examples = append(examples, reviewed...)
	}
	_, err = seed.Index(ctx, s.Store, examples, false)
	return err
}

func printSummary(r *accuracy.Result) {
	fmt.Println("========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")
	fmt.Printf("Accuracy: %.2f%%  (macro F1 %.3f)\n", r.Accuracy*100, r.MacroF1)

	fmt.Println("\nPer label:")
	for _, l := range r.Labels {
		fmt.Printf("  %-12s  P %.2f  R %.2f  F1 %.2f  (n=%d)\n", l.Label, l.Precision, l.Recall, l.F1, l.Support)
	}

	fmt.Println("\nBy method:")
	for _, m := range r.Methods {
		fmt.Printf("  %-18s  %d/%d  (%.2f%%)\n", m.Method, m.Correct, m.Count, m.Accuracy*100)
	}

	if r.Ensemble != nil {
		fmt.Printf("\nEnsemble agreement: %.2f%%  (vector %.2f%%, sequence %.2f%%)\n",
			r.Ensemble.Agreement*100, r.Ensemble.VectorAccuracy*100, r.Ensemble.SequenceAccuracy*100)
	}
	if r.Usage.Calls > 0 {
		fmt.Printf("\nLLM calls: %d (failures %d, denied %d, tokens %d)\n",
			r.Usage.Calls, r.Usage.Failures, r.Usage.Denied, r.Usage.TotalTokens())
	}
	fmt.Printf("Misses: %d, duration %s\n", len(r.Misses), r.Duration)
}
