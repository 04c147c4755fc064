// ABOUTME: Trained sequence classifier loaded from a HuggingFace ONNX export directory
// ABOUTME: Runs batched inference through a Backend and maps predicted ids via category_config.json
package seqclf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/textnorm"
)

// Artifact file names expected in a model directory. The first three come
// from a standard HuggingFace export (optimum or torch.onnx); the label file
// is written by the training script.
const (
	ModelFile     = "model.onnx"
	TokenizerFile = "tokenizer.json"
	ConfigFile    = "config.json"
	LabelsFile    = "category_config.json"
)

const (
	// DefaultBatchSize is the number of texts sent to the backend together.
	DefaultBatchSize = 32
	// DefaultTimeout bounds inference for one batch chunk.
	DefaultTimeout = 30 * time.Second
)

// ErrArtifactMissing is returned by Load when a required file is absent.
var ErrArtifactMissing = errors.New("model artifact missing")

// LabelConfig is the on-disk category_config.json shape.
type LabelConfig struct {
	IDToCategory map[string]string `json:"id_to_category"`
}

// Score is one label with its probability.
type Score struct {
	Label string
	Prob  float64
}

// Backend runs a loaded model. Predict returns one score list per text in
// input order; labels are the model's own id2label names.
type Backend interface {
	Predict(texts []string) ([][]Score, error)
	Close() error
}

// BackendOpener builds a Backend from an artifact directory.
type BackendOpener func(dir string) (Backend, error)

// Model is an immutable classifier; it is safe for concurrent use.
type Model struct {
	dir       string
	backend   Backend
	opener    BackendOpener
	labels    []string
	batchSize int
	timeout   time.Duration
	logger    *log.Logger
}

// Option configures Load.
type Option func(*Model)

// WithBatchSize sets the chunk size for ClassifyBatch.
func WithBatchSize(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// WithTimeout bounds each inference chunk.
func WithTimeout(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithBackendOpener replaces the ONNX runtime, mainly for tests.
func WithBackendOpener(open BackendOpener) Option {
	return func(m *Model) { m.opener = open }
}

// Load checks that dir holds a complete export, reads the label map, and
// opens the backend. Any problem is a setup error.
func Load(dir string, opts ...Option) (*Model, error) {
	m := &Model{
		dir:       dir,
		opener:    openONNX,
		batchSize: DefaultBatchSize,
		timeout:   DefaultTimeout,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, name := range []string{ModelFile, TokenizerFile, ConfigFile, LabelsFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		} else if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}

	if err := checkTokenizer(filepath.Join(dir, TokenizerFile)); err != nil {
		return nil, err
	}

	var lcfg LabelConfig
	if err := readJSON(filepath.Join(dir, LabelsFile), &lcfg); err != nil {
		return nil, err
	}
	var err error
	if m.labels, err = orderedLabels(lcfg.IDToCategory); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, LabelsFile), err)
	}

	if m.backend, err = m.opener(dir); err != nil {
		return nil, fmt.Errorf("open model %s: %w", dir, err)
	}

	m.logger.Debug("loaded sequence classifier", "dir", dir, "labels", len(m.labels))
	return m, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// checkTokenizer rejects files that are not in the HuggingFace tokenizers
// schema before the runtime reports something less readable.
func checkTokenizer(path string) error {
	var tok struct {
		Model *struct {
			Type  string          `json:"type"`
			Vocab json.RawMessage `json:"vocab"`
		} `json:"model"`
	}
	if err := readJSON(path, &tok); err != nil {
		return err
	}
	if tok.Model == nil || len(tok.Model.Vocab) == 0 {
		return fmt.Errorf("%s: not a HuggingFace tokenizer (no model.vocab section)", path)
	}
	return nil
}

func orderedLabels(idToCategory map[string]string) ([]string, error) {
	if len(idToCategory) == 0 {
		return nil, fmt.Errorf("id_to_category is empty")
	}
	labels := make([]string, len(idToCategory))
	for key, name := range idToCategory {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 || id >= len(labels) {
			return nil, fmt.Errorf("label id %q is not in [0,%d)", key, len(labels))
		}
		if name == "" {
			return nil, fmt.Errorf("label id %d has an empty name", id)
		}
		labels[id] = name
	}
	return labels, nil
}

// Labels returns the label names in id order.
func (m *Model) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Dir returns the artifact directory the model was loaded from.
func (m *Model) Dir() string {
	return m.dir
}

// Close releases the backend.
func (m *Model) Close() error {
	if m.backend == nil {
		return nil
	}
	return m.backend.Close()
}

// Classify labels one text.
func (m *Model) Classify(ctx context.Context, text string) (models.Classification, error) {
	out, err := m.ClassifyBatch(ctx, []string{text})
	if err != nil {
		return models.Classification{}, err
	}
	return out[0], nil
}

// ClassifyBatch labels texts in chunks. Blank texts get the empty sentinel
// without reaching the backend.
func (m *Model) ClassifyBatch(ctx context.Context, texts []string) ([]models.Classification, error) {
	out := make([]models.Classification, len(texts))

	var (
		pending []int
		inputs  []string
	)
	for i, t := range texts {
		clean := textnorm.Normalize(t)
		if clean == "" {
			out[i] = models.EmptyClassification()
			continue
		}
		pending = append(pending, i)
		inputs = append(inputs, clean)
	}

	for start := 0; start < len(pending); start += m.batchSize {
		end := min(start+m.batchSize, len(pending))
		results, err := m.runChunk(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		for j, r := range results {
			out[pending[start+j]] = r
		}
	}
	return out, nil
}

type prediction struct {
	scores [][]Score
	err    error
}

func (m *Model) runChunk(ctx context.Context, texts []string) ([]models.Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sequence classifier inference: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// The runtime takes no context, so a stuck call is abandoned rather than interrupted
	done := make(chan prediction, 1)
	go func() {
		scores, err := m.backend.Predict(texts)
		done <- prediction{scores: scores, err: err}
	}()

	var p prediction
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("sequence classifier inference: %w", ctx.Err())
	case p = <-done:
	}
	if p.err != nil {
		return nil, fmt.Errorf("sequence classifier inference: %w", p.err)
	}
	if len(p.scores) != len(texts) {
		return nil, fmt.Errorf("sequence classifier returned %d results for %d texts", len(p.scores), len(texts))
	}

	results := make([]models.Classification, len(texts))
	for i, scores := range p.scores {
		best, ok := top(scores)
		if !ok {
			return nil, fmt.Errorf("sequence classifier returned no scores for item %d", i)
		}
		results[i] = models.Classification{
			Category:   m.category(best.Label),
			Confidence: min(1, max(0, best.Prob)),
			Method:     models.MethodFinetuned,
		}
	}
	return results, nil
}

func top(scores []Score) (Score, bool) {
	if len(scores) == 0 {
		return Score{}, false
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Prob > best.Prob {
			best = s
		}
	}
	return best, true
}

// category maps a model label to a category name. Exports without a custom
// id2label name their classes LABEL_<id>; bare ids are accepted too.
// Anything else is already a name and passes through.
func (m *Model) category(label string) string {
	id, err := strconv.Atoi(strings.TrimPrefix(label, "LABEL_"))
	if err != nil || id < 0 || id >= len(m.labels) {
		return label
	}
	return m.labels[id]
}
