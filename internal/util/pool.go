// ABOUTME: Fixed-size worker pool for independent network round trips
// ABOUTME: Results are written back by input index so order never depends on arrival
package util

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the pool size used for LLM-backed calls.
const DefaultWorkers = 5

// MapOrdered runs fn for every index in [0, n) on at most workers goroutines
// and returns the results in index order. fn must not fail the batch: errors
// are the caller's to record inside R.
func MapOrdered[R any](ctx context.Context, workers, n int, fn func(ctx context.Context, i int) R) []R {
	results := make([]R, n)
	if n == 0 {
		return results
	}
	if workers < 1 {
		workers = DefaultWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		idx := i
		g.Go(func() error {
			results[idx] = fn(gctx, idx)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
