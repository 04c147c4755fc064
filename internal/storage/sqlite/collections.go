// ABOUTME: Collection lifecycle for the example index
// ABOUTME: Create, lookup, and reset-by-recreate under identical configuration
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DistanceCosine is the only supported distance metric.
const DistanceCosine = "cosine"

// Collection is a named, independently resettable set of examples.
type Collection struct {
	Name           string
	EmbeddingModel string
	Distance       string
	Dimension      int
	CreatedAt      time.Time
}

// CollectionStore handles collection persistence
type CollectionStore struct {
	db *DB
}

// NewCollectionStore creates a new CollectionStore
func NewCollectionStore(db *DB) *CollectionStore {
	return &CollectionStore{db: db}
}

// Get returns the named collection, or nil when it does not exist.
func (s *CollectionStore) Get(ctx context.Context, name string) (*Collection, error) {
	var c Collection
	err := s.db.QueryRowContext(ctx, `
		SELECT name, embedding_model, distance, dimension, created_at
		FROM collections
		WHERE name = ?
	`, name).Scan(&c.Name, &c.EmbeddingModel, &c.Distance, &c.Dimension, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new collection. It fails if the name is taken.
func (s *CollectionStore) Create(ctx context.Context, c *Collection) error {
	if c.Name == "" {
		return fmt.Errorf("collection name cannot be empty")
	}
	if c.Distance == "" {
		c.Distance = DistanceCosine
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (name, embedding_model, distance, dimension, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.Name, c.EmbeddingModel, c.Distance, c.Dimension, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", c.Name, err)
	}
	return nil
}

// SetDimension records the vector width once the first examples arrive.
func (s *CollectionStore) SetDimension(ctx context.Context, name string, dim int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE collections SET dimension = ? WHERE name = ?`, dim, name)
	return err
}

// Reset deletes the collection and its examples and recreates it with the
// same configuration, in one transaction.
func (s *CollectionStore) Reset(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var c Collection
	err = tx.QueryRowContext(ctx, `
		SELECT name, embedding_model, distance, dimension
		FROM collections
		WHERE name = ?
	`, name).Scan(&c.Name, &c.EmbeddingModel, &c.Distance, &c.Dimension)
	if err == sql.ErrNoRows {
		return fmt.Errorf("reset %s: collection does not exist", name)
	}
	if err != nil {
		return fmt.Errorf("reset %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM examples WHERE collection = ?`, name); err != nil {
		return fmt.Errorf("reset %s: delete examples: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return fmt.Errorf("reset %s: delete collection: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO collections (name, embedding_model, distance, dimension, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.Name, c.EmbeddingModel, c.Distance, c.Dimension, time.Now()); err != nil {
		return fmt.Errorf("reset %s: recreate: %w", name, err)
	}

	return tx.Commit()
}

// List returns every collection ordered by name.
func (s *CollectionStore) List(ctx context.Context) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, embedding_model, distance, dimension, created_at
		FROM collections
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.Name, &c.EmbeddingModel, &c.Distance, &c.Dimension, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
