// ABOUTME: Benchmark runner that scores classifiers against labeled cases
// ABOUTME: Runs one batch, compares ensemble members when available, and exports JSON results

package accuracy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/ensemble"
	"github.com/harper/feedback-radar/internal/llm"
	"github.com/harper/feedback-radar/internal/models"
)

// Classifier labels a batch of texts.
type Classifier interface {
	ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error)
}

// Comparer runs both ensemble members. *ensemble.Ensemble satisfies it.
type Comparer interface {
	Compare(ctx context.Context, texts []string) ([]ensemble.Outcome, error)
}

// UsageSource reports LLM traffic. *llm.Metered satisfies it.
type UsageSource interface {
	Usage() llm.Usage
}

// Prediction is one scored case.
type Prediction struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Expected   string  `json:"expected"`
	Predicted  string  `json:"predicted"`
	Method     string  `json:"method"`
	Confidence float64 `json:"confidence"`
	Correct    bool    `json:"correct"`
}

// Result is the outcome of one benchmark run.
type Result struct {
	Name      string          `json:"name"`
	RunAt     time.Time       `json:"run_at"`
	Cases     int             `json:"cases"`
	Accuracy  float64         `json:"accuracy"`
	MacroF1   float64         `json:"macro_f1"`
	Labels    []LabelMetrics  `json:"labels"`
	Methods   []MethodMetrics `json:"methods"`
	Ensemble  *EnsembleStats  `json:"ensemble,omitempty"`
	Usage     llm.Usage       `json:"usage"`
	Duration  time.Duration   `json:"duration_ns"`
	Misses    []Prediction    `json:"misses"`
	Predicted []Prediction    `json:"predictions,omitempty"`
}

// EnsembleStats compares the two members on the same cases.
type EnsembleStats struct {
	Agreement        float64 `json:"agreement"`
	VectorAccuracy   float64 `json:"vector_accuracy"`
	SequenceAccuracy float64 `json:"sequence_accuracy"`
}

// Runner executes benchmark runs.
type Runner struct {
	classifier Classifier
	comparer   Comparer
	usage      UsageSource
	keepAll    bool
	now        func() time.Time
	logger     *log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithComparer scores the ensemble and reports member agreement. The
// combined label is the prediction.
func WithComparer(c Comparer) Option {
	return func(r *Runner) { r.comparer = c }
}

// WithUsage records LLM traffic in the result.
func WithUsage(u UsageSource) Option {
	return func(r *Runner) { r.usage = u }
}

// WithAllPredictions keeps every prediction, not just the misses.
func WithAllPredictions() Option {
	return func(r *Runner) { r.keepAll = true }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner. classifier may be nil when a comparer is set.
func NewRunner(classifier Classifier, opts ...Option) (*Runner, error) {
	r := &Runner{classifier: classifier, now: time.Now, logger: log.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.classifier == nil && r.comparer == nil {
		return nil, fmt.Errorf("benchmark runner needs a classifier or comparer")
	}
	return r, nil
}

// Run classifies every case in one batch and scores the result.
func (r *Runner) Run(ctx context.Context, name string, cases []Case) (*Result, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("no cases to run")
	}

	texts := make([]string, len(cases))
	expected := make([]string, len(cases))
	for i, c := range cases {
		texts[i] = c.Text
		expected[i] = c.Label
	}

	var before llm.Usage
	if r.usage != nil {
		before = r.usage.Usage()
	}

	start := time.Now()
	result := &Result{Name: name, RunAt: r.now().UTC(), Cases: len(cases)}

	var classified []models.Classification
	if r.comparer != nil {
		outcomes, err := r.comparer.Compare(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
		classified = make([]models.Classification, len(outcomes))
		vector := make([]string, len(outcomes))
		sequence := make([]string, len(outcomes))
		for i, o := range outcomes {
			classified[i] = o.Combined
			vector[i] = o.Vector.Category
			sequence[i] = o.Sequence.Category
		}
		result.Ensemble = &EnsembleStats{
			Agreement:        round(ensemble.Agreement(outcomes)),
			VectorAccuracy:   Accuracy(expected, vector),
			SequenceAccuracy: Accuracy(expected, sequence),
		}
	} else {
		var err error
		classified, err = r.classifier.ClassifyBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("classify: %w", err)
		}
	}
	if len(classified) != len(cases) {
		return nil, fmt.Errorf("got %d results for %d cases", len(classified), len(cases))
	}
	result.Duration = time.Since(start)

	predicted := make([]string, len(cases))
	methods := make([]string, len(cases))
	result.Misses = []Prediction{}
	for i, c := range classified {
		predicted[i] = c.Category
		methods[i] = string(c.Method)

		p := Prediction{
			ID:         cases[i].ID,
			Text:       cases[i].Text,
			Expected:   expected[i],
			Predicted:  c.Category,
			Method:     string(c.Method),
			Confidence: c.Confidence,
			Correct:    c.Category == expected[i],
		}
		if !p.Correct {
			result.Misses = append(result.Misses, p)
		}
		if r.keepAll {
			result.Predicted = append(result.Predicted, p)
		}
	}

	result.Accuracy = Accuracy(expected, predicted)
	result.Labels = PerLabel(expected, predicted)
	result.MacroF1 = MacroF1(result.Labels)
	result.Methods = ByMethod(expected, predicted, methods)
	if r.usage != nil {
		after := r.usage.Usage()
		result.Usage = llm.Usage{
			Calls:        after.Calls - before.Calls,
			Failures:     after.Failures - before.Failures,
			Denied:       after.Denied - before.Denied,
			InputTokens:  after.InputTokens - before.InputTokens,
			OutputTokens: after.OutputTokens - before.OutputTokens,
		}
	}

	r.logger.Info("benchmark complete",
		"name", name, "cases", len(cases), "accuracy", result.Accuracy, "misses", len(result.Misses))
	return result, nil
}

// ExportResults writes results to path as indented JSON.
func ExportResults(results []*Result, path string) error {
	data, err := json.MarshalIndent(map[string]any{
		"generated_at": time.Now().UTC(),
		"results":      results,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
