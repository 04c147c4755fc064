// ABOUTME: Weekly batch job: label both periods, tag, detect trends, find sub-themes
// ABOUTME: Classifier setup errors abort the run; LLM trouble only shows up in the usage counters
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/feedback-radar/internal/llm"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/subtheme"
	"github.com/harper/feedback-radar/internal/tags"
	"github.com/harper/feedback-radar/internal/trend"
)

// OneAxisClassifier labels texts with a single category. The k-NN
// classifier and the ensemble both satisfy it.
type OneAxisClassifier interface {
	ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error)
}

// LocalClassifier is a one-axis classifier that can label without LLM
// escalation. Run uses it for the previous period, which only feeds trend
// counts.
type LocalClassifier interface {
	LocalClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error)
}

// TwoAxisClassifier labels texts with a topic and a sentiment.
type TwoAxisClassifier interface {
	ClassifyBatch(ctx context.Context, texts []string) ([]models.TwoAxisClassification, error)
}

// Tagger attaches detail tags.
type Tagger interface {
	ExtractBatch(ctx context.Context, items []models.LabeledItem) []models.DetailTags
	Stats() tags.Stats
}

// Analyzer finds sub-themes.
type Analyzer interface {
	Analyze(ctx context.Context, items []models.LabeledItem) (*models.SubThemeResult, error)
}

// UsageSource reports LLM traffic. *llm.Metered satisfies it.
type UsageSource interface {
	Usage() llm.Usage
}

// Input is one run's two periods of raw items.
type Input struct {
	This []models.FeedbackItem `json:"this"`
	Prev []models.FeedbackItem `json:"prev"`
}

// Report is the JSON document a run produces.
type Report struct {
	RunID       string                   `json:"run_id"`
	GeneratedAt time.Time                `json:"generated_at"`
	Items       []models.LabeledItem     `json:"items"`
	Trends      *models.TrendReport      `json:"trends"`
	SubThemes   *models.SubThemeResult   `json:"sub_themes,omitempty"`
	Tags        *tags.Rollup             `json:"tag_rollup,omitempty"`
	TagStats    *tags.Stats              `json:"tag_stats,omitempty"`
	Usage       llm.Usage                `json:"usage"`
	Durations   map[string]time.Duration `json:"durations_ns"`
}

// Pipeline wires the classifiers and analyzers for a run.
type Pipeline struct {
	oneAxis  OneAxisClassifier
	twoAxis  TwoAxisClassifier
	tagger   Tagger
	detector *trend.Detector
	analyzer Analyzer
	usage    UsageSource
	now      func() time.Time
	logger   *log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOneAxis labels items with a single category.
func WithOneAxis(c OneAxisClassifier) Option {
	return func(p *Pipeline) { p.oneAxis = c }
}

// WithTwoAxis labels items with topic and sentiment.
func WithTwoAxis(c TwoAxisClassifier) Option {
	return func(p *Pipeline) { p.twoAxis = c }
}

// WithTagger enables detail tags for the current period.
func WithTagger(t Tagger) Option {
	return func(p *Pipeline) { p.tagger = t }
}

// WithDetector replaces the default trend detector.
func WithDetector(d *trend.Detector) Option {
	return func(p *Pipeline) { p.detector = d }
}

// WithAnalyzer enables sub-theme analysis.
func WithAnalyzer(a *subtheme.Analyzer) Option {
	return func(p *Pipeline) {
		if a != nil {
			p.analyzer = a
		}
	}
}

// WithUsage reports LLM traffic from the given source.
func WithUsage(u UsageSource) Option {
	return func(p *Pipeline) { p.usage = u }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New builds a pipeline. At least one classifier is required.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		detector: trend.NewDetector(),
		now:      time.Now,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.oneAxis == nil && p.twoAxis == nil {
		return nil, fmt.Errorf("pipeline: no classifier configured")
	}
	return p, nil
}

// Run labels both periods and builds the report.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Report, error) {
	report := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: p.now().UTC(),
		Durations:   map[string]time.Duration{},
	}
	logger := p.logger.With("run", report.RunID)
	logger.Info("run started", "this", len(in.This), "prev", len(in.Prev))

	start := time.Now()
	this, err := p.label(ctx, in.This, false)
	if err != nil {
		return nil, err
	}
	prev, err := p.label(ctx, in.Prev, true)
	if err != nil {
		return nil, fmt.Errorf("previous period: %w", err)
	}
	report.Durations["classify"] = time.Since(start)

	if p.tagger != nil && len(this) > 0 {
		start = time.Now()
		extracted := p.tagger.ExtractBatch(ctx, this)
		for i := range extracted {
			this[i].Tags = &extracted[i]
		}
		rollup := tags.Aggregate(this)
		stats := p.tagger.Stats()
		report.Tags = &rollup
		report.TagStats = &stats
		report.Durations["tags"] = time.Since(start)
	}

	start = time.Now()
	report.Trends = p.detector.Detect(this, prev)
	report.Durations["trends"] = time.Since(start)

	if p.analyzer != nil {
		start = time.Now()
		sub, err := p.analyzer.Analyze(ctx, this)
		if err != nil {
			return nil, fmt.Errorf("sub-theme analysis: %w", err)
		}
		report.SubThemes = sub
		report.Durations["sub_themes"] = time.Since(start)
	}

	report.Items = this
	if p.usage != nil {
		report.Usage = p.usage.Usage()
	}

	logger.Info("run complete",
		"items", len(this),
		"spikes", len(report.Trends.Spikes),
		"drops", len(report.Trends.Drops),
		"llm_calls", report.Usage.Calls,
		"llm_failures", report.Usage.Failures+report.Usage.Denied)
	return report, nil
}

// label runs the configured classifiers over items in one batch each. With
// local set, a one-axis classifier that supports it skips escalation.
func (p *Pipeline) label(ctx context.Context, items []models.FeedbackItem, local bool) ([]models.LabeledItem, error) {
	out := make([]models.LabeledItem, len(items))
	texts := make([]string, len(items))
	for i, item := range items {
		out[i] = models.LabeledItem{FeedbackItem: item}
		out[i].Cohort = item.CohortKey()
		texts[i] = item.Content()
	}
	if len(items) == 0 {
		return out, nil
	}

	if p.oneAxis != nil {
		classify := p.oneAxis.ClassifyBatch
		if lc, ok := p.oneAxis.(LocalClassifier); ok && local {
			classify = lc.LocalClassifyBatch
		}
		results, err := classify(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("classify: %w", err)
		}
		if len(results) != len(items) {
			return nil, fmt.Errorf("classify: %d results for %d items", len(results), len(items))
		}
		for i := range results {
			c := results[i]
			out[i].Classification = &c
		}
	}

	if p.twoAxis != nil {
		results, err := p.twoAxis.ClassifyBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("two-axis classify: %w", err)
		}
		if len(results) != len(items) {
			return nil, fmt.Errorf("two-axis classify: %d results for %d items", len(results), len(items))
		}
		for i := range results {
			c := results[i]
			out[i].TwoAxis = &c
		}
	}
	return out, nil
}
