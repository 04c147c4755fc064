// ABOUTME: Labeled example storage with embedding vectors as BLOBs
// ABOUTME: Insertion-ordered scans feed the in-process cosine search
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrDuplicateID is returned when an example id already exists in the collection.
var ErrDuplicateID = errors.New("duplicate example id")

// StoredExample is one persisted example with its vector.
type StoredExample struct {
	Seq      int64
	ID       string
	Text     string
	Category string
	Metadata map[string]string
	Vector   []float64
}

// ExampleStore handles example persistence
type ExampleStore struct {
	db *DB
}

// NewExampleStore creates a new ExampleStore
func NewExampleStore(db *DB) *ExampleStore {
	return &ExampleStore{db: db}
}

// Insert stores examples in one transaction. Any id already present in the
// collection, or repeated within the batch, aborts the whole insert.
func (s *ExampleStore) Insert(ctx context.Context, collection string, examples []StoredExample) error {
	if len(examples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seen := make(map[string]bool, len(examples))
	now := time.Now()
	for _, ex := range examples {
		if seen[ex.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, ex.ID)
		}
		seen[ex.ID] = true

		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM examples WHERE collection = ? AND id = ?`, collection, ex.ID,
		).Scan(&exists)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateID, ex.ID)
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check %s: %w", ex.ID, err)
		}

		meta, err := json.Marshal(ex.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", ex.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO examples (collection, id, text, category, metadata, vector, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, collection, ex.ID, ex.Text, ex.Category, string(meta), vectorToBlob(ex.Vector), now); err != nil {
			return fmt.Errorf("insert %s: %w", ex.ID, err)
		}
	}

	return tx.Commit()
}

// All returns every example in the collection in insertion order.
func (s *ExampleStore) All(ctx context.Context, collection string) ([]StoredExample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, text, category, metadata, vector
		FROM examples
		WHERE collection = ?
		ORDER BY seq ASC
	`, collection)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []StoredExample
	for rows.Next() {
		var (
			ex       StoredExample
			category sql.NullString
			meta     sql.NullString
			blob     []byte
		)
		if err := rows.Scan(&ex.Seq, &ex.ID, &ex.Text, &category, &meta, &blob); err != nil {
			return nil, err
		}
		if category.Valid {
			ex.Category = category.String
		}
		if meta.Valid && meta.String != "" && meta.String != "null" {
			if err := json.Unmarshal([]byte(meta.String), &ex.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", ex.ID, err)
			}
		}
		ex.Vector = blobToVector(blob)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Count returns the number of examples in the collection.
func (s *ExampleStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM examples WHERE collection = ?`, collection,
	).Scan(&n)
	return n, err
}

// CountByCategory returns example counts keyed by category.
func (s *ExampleStore) CountByCategory(ctx context.Context, collection string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(category, ''), COUNT(*)
		FROM examples
		WHERE collection = ?
		GROUP BY category
	`, collection)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[category] = n
	}
	return counts, rows.Err()
}

// vectorToBlob converts a float64 slice to binary blob
func vectorToBlob(vector []float64) []byte {
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to float64 slice
func blobToVector(blob []byte) []float64 {
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(blob[i*8:])
		vector[i] = math.Float64frombits(bits)
	}
	return vector
}
