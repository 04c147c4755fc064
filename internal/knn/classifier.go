// ABOUTME: k-nearest-neighbor voting classifier over the example vector store
// ABOUTME: Local vote and redirect rules are pure; LLM escalation is a separate, explicit step
package knn

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/llm"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/textnorm"
	"github.com/harper/feedback-radar/internal/util"
)

const (
	// DefaultK is the number of neighbors consulted per vote.
	DefaultK = 5
	// DefaultThreshold is the confidence below which escalation is attempted.
	DefaultThreshold = 0.3
	// maxQueryRunes bounds the text sent to the store.
	maxQueryRunes = 500
)

// Searcher is the part of the vector store the classifier needs.
type Searcher interface {
	SearchSimilar(ctx context.Context, text string, k int) ([]models.VectorSearchResult, error)
	SearchSimilarBatch(ctx context.Context, texts []string, k int) ([][]models.VectorSearchResult, error)
}

// Escalator produces a second opinion for low-confidence items.
// *llm.RubricClassifier satisfies it.
type Escalator interface {
	Classify(ctx context.Context, text string) (*llm.Verdict, error)
}

// Stats counts escalation traffic since the classifier was built.
type Stats struct {
	Escalations        int64 `json:"escalations"`
	EscalationFailures int64 `json:"escalation_failures"`
}

// Classifier labels text by a similarity-weighted vote of its neighbors.
type Classifier struct {
	store     Searcher
	k         int
	threshold float64
	escalator Escalator
	rules     []RedirectRule
	workers   int
	logger    *log.Logger

	escalations atomic.Int64
	failures    atomic.Int64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithK sets the neighbor count.
func WithK(k int) Option {
	return func(c *Classifier) { c.k = k }
}

// WithThreshold sets the escalation threshold.
func WithThreshold(t float64) Option {
	return func(c *Classifier) { c.threshold = t }
}

// WithEscalator enables the LLM fallback.
func WithEscalator(e Escalator) Option {
	return func(c *Classifier) { c.escalator = e }
}

// WithRules installs ordered redirect rules.
func WithRules(rules []RedirectRule) Option {
	return func(c *Classifier) { c.rules = append([]RedirectRule(nil), rules...) }
}

// WithWorkers sets the escalation pool size.
func WithWorkers(n int) Option {
	return func(c *Classifier) { c.workers = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// New builds a classifier. Invalid settings are setup errors.
func New(store Searcher, opts ...Option) (*Classifier, error) {
	if store == nil {
		return nil, fmt.Errorf("knn: vector store is required")
	}
	c := &Classifier{
		store:     store,
		k:         DefaultK,
		threshold: DefaultThreshold,
		workers:   util.DefaultWorkers,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.k < 1 {
		return nil, fmt.Errorf("knn: k must be at least 1, got %d", c.k)
	}
	if c.threshold < 0 || c.threshold > 1 {
		return nil, fmt.Errorf("knn: threshold must be in [0,1], got %v", c.threshold)
	}
	for i := range c.rules {
		if err := c.rules[i].Compile(); err != nil {
			return nil, fmt.Errorf("knn: %w", err)
		}
	}
	return c, nil
}

// LocalClassify votes without calling an LLM.
func (c *Classifier) LocalClassify(ctx context.Context, text string) (models.Classification, error) {
	query := prepare(text)
	if query == "" {
		return models.EmptyClassification(), nil
	}

	neighbors, err := c.store.SearchSimilar(ctx, query, c.k)
	if err != nil {
		return models.Classification{}, fmt.Errorf("knn search: %w", err)
	}
	return c.decide(query, neighbors), nil
}

// Escalate asks the LLM for a rubric label. Any failure is returned to the
// caller, who keeps the local result.
func (c *Classifier) Escalate(ctx context.Context, text string) (models.Classification, error) {
	if c.escalator == nil {
		return models.Classification{}, llm.ErrNoLLM
	}
	c.escalations.Add(1)

	verdict, err := c.escalator.Classify(ctx, text)
	if err != nil {
		c.failures.Add(1)
		return models.Classification{}, err
	}
	return models.Classification{
		Category:   verdict.Category,
		Confidence: verdict.Confidence,
		Method:     models.MethodLLM,
		Reason:     verdict.Reason,
	}, nil
}

// Classify votes locally and escalates low-confidence results when an
// escalator is configured. Escalation failures are logged, not returned.
func (c *Classifier) Classify(ctx context.Context, text string) (models.Classification, error) {
	local, err := c.LocalClassify(ctx, text)
	if err != nil {
		return local, err
	}
	if !c.shouldEscalate(local) {
		return local, nil
	}
	return c.escalateOrKeep(ctx, text, local), nil
}

// ClassifyBatch searches once for the whole batch, votes per item exactly as
// LocalClassify does, then escalates the low-confidence items concurrently.
// The result has one entry per input, in input order.
func (c *Classifier) ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error) {
	results, err := c.LocalClassifyBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	var pending []int
	for i, r := range results {
		if c.shouldEscalate(r) {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return results, nil
	}

	c.logger.Debug("escalating low-confidence items", "count", len(pending), "threshold", c.threshold)
	escalated := util.MapOrdered(ctx, c.workers, len(pending), func(ctx context.Context, j int) models.Classification {
		i := pending[j]
		return c.escalateOrKeep(ctx, texts[i], results[i])
	})
	for j, i := range pending {
		results[i] = escalated[j]
	}
	return results, nil
}

// LocalClassifyBatch is the batched form of LocalClassify.
func (c *Classifier) LocalClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error) {
	results := make([]models.Classification, len(texts))

	var (
		queries []string
		slots   []int
	)
	for i, t := range texts {
		q := prepare(t)
		if q == "" {
			results[i] = models.EmptyClassification()
			continue
		}
		queries = append(queries, q)
		slots = append(slots, i)
	}
	if len(queries) == 0 {
		return results, nil
	}

	neighbors, err := c.store.SearchSimilarBatch(ctx, queries, c.k)
	if err != nil {
		return nil, fmt.Errorf("knn batch search: %w", err)
	}
	if len(neighbors) != len(queries) {
		return nil, fmt.Errorf("knn batch search returned %d results for %d queries", len(neighbors), len(queries))
	}
	for j, i := range slots {
		results[i] = c.decide(queries[j], neighbors[j])
	}
	return results, nil
}

// Stats returns escalation counters.
func (c *Classifier) Stats() Stats {
	return Stats{
		Escalations:        c.escalations.Load(),
		EscalationFailures: c.failures.Load(),
	}
}

func (c *Classifier) decide(query string, neighbors []models.VectorSearchResult) models.Classification {
	if len(neighbors) == 0 {
		return models.Classification{Category: models.CategoryUnclassified, Confidence: 0, Method: models.MethodNone}
	}

	label, confidence := Vote(neighbors)
	result := models.Classification{Category: label, Confidence: confidence, Method: models.MethodVector}
	if rule := applyRules(c.rules, label, query); rule != nil {
		result.Category = rule.Target
		result.Reason = "redirect:" + rule.Name
	}
	return result
}

func (c *Classifier) shouldEscalate(r models.Classification) bool {
	return c.escalator != nil && r.Method == models.MethodVector && r.Confidence < c.threshold
}

func (c *Classifier) escalateOrKeep(ctx context.Context, text string, local models.Classification) models.Classification {
	esc, err := c.Escalate(ctx, text)
	if err != nil {
		c.logger.Warn("llm fallback failed, keeping vote", "category", local.Category, "confidence", local.Confidence, "error", err)
		return local
	}
	return esc
}

// Vote tallies similarity-weighted votes. Similarity is max(0, 1-distance).
// Ties go to the label seen first in neighbor order. Confidence is the
// winner's share of the total weight, or 0 when every weight is 0.
func Vote(neighbors []models.VectorSearchResult) (string, float64) {
	if len(neighbors) == 0 {
		return models.CategoryUnclassified, 0
	}

	var (
		order   []string
		weights = make(map[string]float64)
		total   float64
	)
	for _, n := range neighbors {
		label := n.Category()
		if label == "" {
			label = models.CategoryUnclassified
		}
		if _, seen := weights[label]; !seen {
			order = append(order, label)
		}
		sim := max(0, 1-n.Distance)
		weights[label] += sim
		total += sim
	}

	best := order[0]
	for _, label := range order[1:] {
		if weights[label] > weights[best] {
			best = label
		}
	}
	if total == 0 {
		return best, 0
	}
	return best, min(1, weights[best]/total)
}

func prepare(text string) string {
	return textnorm.Truncate(textnorm.Normalize(text), maxQueryRunes)
}
