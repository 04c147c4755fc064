// ABOUTME: Named collection of labeled example embeddings with cosine nearest-neighbor search
// ABOUTME: Backed by the sqlite example tables; scoring happens in process over a cached snapshot
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/harper/feedback-radar/internal/llm"
	"github.com/harper/feedback-radar/internal/models"
	"github.com/harper/feedback-radar/internal/storage/sqlite"
	"github.com/harper/feedback-radar/internal/textnorm"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrCollectionNotFound is returned by Open when the collection is missing.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrEmbedderMismatch is returned when a collection was built with another embedding model.
	ErrEmbedderMismatch = errors.New("collection was built with a different embedding model")
	// ErrDimensionMismatch is returned when a vector does not match the collection width.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// addBatchSize bounds the texts embedded per call in AddBatch.
const addBatchSize = 64

// Store is a handle on one collection. Search and Add may run concurrently;
// Reset excludes both.
type Store struct {
	name        string
	embedder    llm.Embedder
	collections *sqlite.CollectionStore
	examples    *sqlite.ExampleStore
	logger      *log.Logger

	mu sync.RWMutex

	cacheMu  sync.Mutex
	snapshot []sqlite.StoredExample
	loaded   bool
}

type openOptions struct {
	createIfMissing bool
	logger          *log.Logger
}

// Option configures Open.
type Option func(*openOptions)

// WithCreateIfMissing creates the collection instead of failing when it is absent.
func WithCreateIfMissing() Option {
	return func(o *openOptions) { o.createIfMissing = true }
}

// WithLogger sets the logger used by the store.
func WithLogger(l *log.Logger) Option {
	return func(o *openOptions) { o.logger = l }
}

// Open resolves the named collection. A missing collection is a setup error
// unless WithCreateIfMissing is given.
func Open(ctx context.Context, db *sqlite.DB, name string, embedder llm.Embedder, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	o := openOptions{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	collections := sqlite.NewCollectionStore(db)
	c, err := collections.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}

	if c == nil {
		if !o.createIfMissing {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		c = &sqlite.Collection{
			Name:           name,
			EmbeddingModel: embedder.Model(),
			Distance:       sqlite.DistanceCosine,
		}
		if err := collections.Create(ctx, c); err != nil {
			return nil, err
		}
		o.logger.Info("created collection", "name", name, "model", c.EmbeddingModel)
	} else if c.EmbeddingModel != "" && c.EmbeddingModel != embedder.Model() {
		return nil, fmt.Errorf("%w: %s uses %s, embedder is %s",
			ErrEmbedderMismatch, name, c.EmbeddingModel, embedder.Model())
	}

	return &Store{
		name:        name,
		embedder:    embedder,
		collections: collections,
		examples:    sqlite.NewExampleStore(db),
		logger:      o.logger,
	}, nil
}

// Name returns the collection name.
func (s *Store) Name() string {
	return s.name
}

// Add normalizes, embeds, and stores one example. The "category" metadata
// key is the example's label.
func (s *Store) Add(ctx context.Context, id, text string, metadata map[string]string) error {
	return s.AddBatch(ctx, []models.LabeledExample{{
		ID:       id,
		Text:     text,
		Category: metadata["category"],
		Metadata: metadata,
	}})
}

// AddBatch embeds examples in chunks and inserts all rows in one transaction
// per chunk. A duplicate id fails the chunk that contains it.
func (s *Store) AddBatch(ctx context.Context, examples []models.LabeledExample) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for start := 0; start < len(examples); start += addBatchSize {
		end := min(start+addBatchSize, len(examples))
		chunk := examples[start:end]

		texts := make([]string, len(chunk))
		for i, ex := range chunk {
			if ex.ID == "" {
				return fmt.Errorf("example id cannot be empty")
			}
			texts[i] = textnorm.Normalize(ex.Text)
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed examples: %w", err)
		}
		if len(vectors) != len(chunk) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(chunk))
		}

		if err := s.checkDimension(ctx, vectors); err != nil {
			return err
		}

		rows := make([]sqlite.StoredExample, len(chunk))
		for i, ex := range chunk {
			meta := make(map[string]string, len(ex.Metadata)+2)
			for k, v := range ex.Metadata {
				meta[k] = v
			}
			meta["category"] = ex.Category
			if ex.Source != "" {
				meta["source"] = string(ex.Source)
			}
			rows[i] = sqlite.StoredExample{
				ID:       ex.ID,
				Text:     ex.Text,
				Category: ex.Category,
				Metadata: meta,
				Vector:   vectors[i],
			}
		}

		err = s.examples.Insert(ctx, s.name, rows)
		s.invalidate()
		if err != nil {
			return err
		}
	}

	s.logger.Debug("indexed examples", "collection", s.name, "count", len(examples))
	return nil
}

func (s *Store) checkDimension(ctx context.Context, vectors [][]float64) error {
	c, err := s.collections.Get(ctx, s.name)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, s.name)
	}

	dim := c.Dimension
	for _, v := range vectors {
		if dim == 0 {
			dim = len(v)
			if err := s.collections.SetDimension(ctx, s.name, dim); err != nil {
				return fmt.Errorf("record dimension: %w", err)
			}
		}
		if len(v) != dim {
			return fmt.Errorf("%w: got %d, collection has %d", ErrDimensionMismatch, len(v), dim)
		}
	}
	return nil
}

// SearchSimilar returns up to k neighbors of text, nearest first. Ties keep
// insertion order. Empty text has no neighbors.
func (s *Store) SearchSimilar(ctx context.Context, text string, k int) ([]models.VectorSearchResult, error) {
	results, err := s.SearchSimilarBatch(ctx, []string{text}, k)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// SearchSimilarBatch embeds all texts in one call and scores each vector
// exactly as SearchSimilar does.
func (s *Store) SearchSimilarBatch(ctx context.Context, texts []string, k int) ([][]models.VectorSearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([][]models.VectorSearchResult, len(texts))
	if k <= 0 || len(texts) == 0 {
		return out, nil
	}

	snapshot, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return out, nil
	}

	var (
		queries []string
		slots   []int
	)
	for i, t := range texts {
		n := textnorm.Normalize(t)
		if n == "" {
			continue
		}
		queries = append(queries, n)
		slots = append(slots, i)
	}
	if len(queries) == 0 {
		return out, nil
	}

	vectors, err := s.embedder.Embed(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("embed queries: %w", err)
	}
	if len(vectors) != len(queries) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(queries))
	}

	for j, v := range vectors {
		res, err := rank(snapshot, v, k)
		if err != nil {
			return nil, err
		}
		out[slots[j]] = res
	}
	return out, nil
}

// rank scores one query vector against every stored example.
func rank(snapshot []sqlite.StoredExample, query []float64, k int) ([]models.VectorSearchResult, error) {
	queryNorm := floats.Norm(query, 2)

	type scored struct {
		idx  int
		dist float64
	}
	scores := make([]scored, 0, len(snapshot))
	for i, ex := range snapshot {
		if len(ex.Vector) != len(query) {
			return nil, fmt.Errorf("%w: query has %d, example %s has %d",
				ErrDimensionMismatch, len(query), ex.ID, len(ex.Vector))
		}
		scores = append(scores, scored{idx: i, dist: CosineDistance(query, ex.Vector, queryNorm)})
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].dist < scores[b].dist
	})
	if len(scores) > k {
		scores = scores[:k]
	}

	results := make([]models.VectorSearchResult, len(scores))
	for i, sc := range scores {
		ex := snapshot[sc.idx]
		results[i] = models.VectorSearchResult{
			ID:       ex.ID,
			Text:     ex.Text,
			Metadata: ex.Metadata,
			Distance: sc.dist,
		}
	}
	return results, nil
}

// CosineDistance returns 1 - cosine similarity, clamped to [0, 2]. A zero
// vector is treated as orthogonal to everything. Pass queryNorm <= 0 to have
// it computed.
func CosineDistance(a, b []float64, queryNorm float64) float64 {
	if queryNorm <= 0 {
		queryNorm = floats.Norm(a, 2)
	}
	bNorm := floats.Norm(b, 2)
	if queryNorm == 0 || bNorm == 0 {
		return 1
	}
	d := 1 - floats.Dot(a, b)/(queryNorm*bNorm)
	return max(0, min(2, d))
}

func (s *Store) load(ctx context.Context) ([]sqlite.StoredExample, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.loaded {
		return s.snapshot, nil
	}
	all, err := s.examples.All(ctx, s.name)
	if err != nil {
		return nil, fmt.Errorf("load examples: %w", err)
	}
	s.snapshot = all
	s.loaded = true
	return all, nil
}

func (s *Store) invalidate() {
	s.cacheMu.Lock()
	s.snapshot = nil
	s.loaded = false
	s.cacheMu.Unlock()
}

// Reset deletes every example and recreates the collection with the same
// configuration.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.collections.Reset(ctx, s.name); err != nil {
		return err
	}
	s.invalidate()
	s.logger.Info("reset collection", "name", s.name)
	return nil
}

// Count returns the number of stored examples.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.examples.Count(ctx, s.name)
}

// CountByCategory returns example counts per label.
func (s *Store) CountByCategory(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.examples.CountByCategory(ctx, s.name)
}
