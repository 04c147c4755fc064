// ABOUTME: Rebuilds the example collection from seed and reviewed examples
// ABOUTME: Duplicate ids within one call are dropped; ids already stored still fail
package seed

import (
	"context"
	"fmt"

	"github.com/harper/feedback-radar/internal/models"
)

// Indexer is the part of the vector store that seeding writes to.
type Indexer interface {
	AddBatch(ctx context.Context, examples []models.LabeledExample) error
	Reset(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Index writes examples to the store, clearing it first when reset is set.
// Examples sharing an id with an earlier one are dropped so reviewed
// exports that repeat seed ids do not abort the run.
func Index(ctx context.Context, store Indexer, examples []models.LabeledExample, reset bool) (int, error) {
	if reset {
		if err := store.Reset(ctx); err != nil {
			return 0, fmt.Errorf("reset collection: %w", err)
		}
	}

	seen := make(map[string]bool, len(examples))
	unique := make([]models.LabeledExample, 0, len(examples))
	for _, ex := range examples {
		if seen[ex.ID] {
			continue
		}
		seen[ex.ID] = true
		unique = append(unique, ex)
	}

	if err := store.AddBatch(ctx, unique); err != nil {
		return 0, fmt.Errorf("index examples: %w", err)
	}
	return store.Count(ctx)
}
