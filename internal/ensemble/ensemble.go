// ABOUTME: Combines the k-NN and sequence classifiers over one batch
// ABOUTME: Agreement earns a bonus; on disagreement the k-NN label wins at a discount
package ensemble

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAgreementBonus is added to the averaged confidence when labels agree.
	DefaultAgreementBonus = 0.1
	// DefaultDisagreementFactor scales the k-NN confidence when labels differ.
	DefaultDisagreementFactor = 0.9
)

// BatchClassifier labels a batch, one result per input in input order.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error)
}

// LocalBatchClassifier can also label without LLM escalation.
type LocalBatchClassifier interface {
	BatchClassifier
	LocalClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error)
}

// LabelMap translates each classifier's labels into a shared label space.
// Labels missing from a map pass through unchanged.
type LabelMap struct {
	Vector   map[string]string `yaml:"vector"`
	Sequence map[string]string `yaml:"sequence"`
}

// ParseLabelMap decodes a YAML label map.
func ParseLabelMap(data []byte) (LabelMap, error) {
	var m LabelMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return LabelMap{}, fmt.Errorf("parse label map: %w", err)
	}
	return m, nil
}

// LoadLabelMap reads a YAML label map file.
func LoadLabelMap(path string) (LabelMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LabelMap{}, fmt.Errorf("read label map %s: %w", path, err)
	}
	return ParseLabelMap(data)
}

func lookup(m map[string]string, label string) string {
	if mapped, ok := m[label]; ok {
		return mapped
	}
	return label
}

// Outcome keeps both inputs next to the combined result.
type Outcome struct {
	Vector   models.Classification `json:"vector"`
	Sequence models.Classification `json:"sequence"`
	Combined models.Classification `json:"combined"`
	Agreed   bool                  `json:"agreed"`
}

// Ensemble runs both classifiers and merges their answers.
type Ensemble struct {
	vector   BatchClassifier
	sequence BatchClassifier
	labels   LabelMap
	bonus    float64
	factor   float64
	logger   *log.Logger
}

// Option configures an Ensemble.
type Option func(*Ensemble)

// WithAgreementBonus overrides the agreement bonus.
func WithAgreementBonus(b float64) Option {
	return func(e *Ensemble) { e.bonus = b }
}

// WithDisagreementFactor overrides the disagreement discount.
func WithDisagreementFactor(f float64) Option {
	return func(e *Ensemble) { e.factor = f }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Ensemble) { e.logger = l }
}

// New builds an Ensemble. Both classifiers are required.
func New(vector, sequence BatchClassifier, labels LabelMap, opts ...Option) (*Ensemble, error) {
	if vector == nil || sequence == nil {
		return nil, fmt.Errorf("ensemble needs both a vector and a sequence classifier")
	}
	e := &Ensemble{
		vector:   vector,
		sequence: sequence,
		labels:   labels,
		bonus:    DefaultAgreementBonus,
		factor:   DefaultDisagreementFactor,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.bonus < 0 || e.bonus > 1 {
		return nil, fmt.Errorf("agreement bonus must be in [0,1], got %v", e.bonus)
	}
	if e.factor < 0 || e.factor > 1 {
		return nil, fmt.Errorf("disagreement factor must be in [0,1], got %v", e.factor)
	}
	return e, nil
}

// ClassifyBatch returns the combined label per input.
func (e *Ensemble) ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error) {
	return combined(e.Compare(ctx, texts))
}

// LocalClassifyBatch is ClassifyBatch with the vector classifier's escalation
// turned off when it supports that.
func (e *Ensemble) LocalClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error) {
	vector := e.vector.ClassifyBatch
	if l, ok := e.vector.(LocalBatchClassifier); ok {
		vector = l.LocalClassifyBatch
	}
	return combined(e.compare(ctx, texts, vector))
}

func combined(outcomes []Outcome, err error) ([]models.Classification, error) {
	if err != nil {
		return nil, err
	}
	out := make([]models.Classification, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Combined
	}
	return out, nil
}

// Compare runs both classifiers and returns the full per-item outcome.
func (e *Ensemble) Compare(ctx context.Context, texts []string) ([]Outcome, error) {
	return e.compare(ctx, texts, e.vector.ClassifyBatch)
}

func (e *Ensemble) compare(ctx context.Context, texts []string, vector func(context.Context, []string) ([]models.Classification, error)) ([]Outcome, error) {
	vec, err := vector(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("vector classifier: %w", err)
	}
	seq, err := e.sequence.ClassifyBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("sequence classifier: %w", err)
	}
	if len(vec) != len(texts) || len(seq) != len(texts) {
		return nil, fmt.Errorf("classifier returned %d/%d results for %d texts", len(vec), len(seq), len(texts))
	}

	out := make([]Outcome, len(texts))
	agreed := 0
	for i := range texts {
		out[i] = e.combine(vec[i], seq[i])
		if out[i].Agreed {
			agreed++
		}
	}
	e.logger.Debug("ensemble batch", "items", len(texts), "agreed", agreed)
	return out, nil
}

// Combine merges one pair of results.
func (e *Ensemble) Combine(vector, sequence models.Classification) models.Classification {
	return e.combine(vector, sequence).Combined
}

func (e *Ensemble) combine(vector, sequence models.Classification) Outcome {
	o := Outcome{Vector: vector, Sequence: sequence}

	if vector.Method == models.MethodEmpty || sequence.Method == models.MethodEmpty {
		o.Combined = vector
		if vector.Method != models.MethodEmpty {
			o.Combined = sequence
		}
		return o
	}

	vLabel := lookup(e.labels.Vector, vector.Category)
	sLabel := lookup(e.labels.Sequence, sequence.Category)

	if vLabel == sLabel {
		o.Agreed = true
		o.Combined = models.Classification{
			Category:   vLabel,
			Confidence: min(1, (vector.Confidence+sequence.Confidence)/2+e.bonus),
			Method:     models.MethodEnsembleAgree,
		}
		return o
	}

	o.Combined = models.Classification{
		Category:   vLabel,
		Confidence: vector.Confidence * e.factor,
		Method:     models.MethodEnsembleVector,
		Reason:     vector.Reason,
	}
	return o
}

// Agreement returns the share of non-empty outcomes whose labels agreed.
func Agreement(outcomes []Outcome) float64 {
	scored, agreed := 0, 0
	for _, o := range outcomes {
		if o.Combined.Method == models.MethodEmpty {
			continue
		}
		scored++
		if o.Agreed {
			agreed++
		}
	}
	if scored == 0 {
		return 0
	}
	return float64(agreed) / float64(scored)
}
