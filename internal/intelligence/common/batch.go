package common

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ItemResult holds the outcome of processing a single item within a batch.
type ItemResult[R any] struct {
	Index int
	Value R
	Err   error
}

// MapFunc processes one item.
type MapFunc[T, R any] func(ctx context.Context, item T) (R, error)

// Map runs fn over items with bounded concurrency, preserving input order in
// the results.  Per-item errors are recorded in the corresponding ItemResult
// rather than aborting the batch; only context cancellation stops the run
// early, in which case the context error is returned and unprocessed items
// carry it as their item error.
func Map[T, R any](ctx context.Context, items []T, workers int, fn MapFunc[T, R]) ([]ItemResult[R], error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]ItemResult[R], len(items))
	for i := range results {
		results[i].Index = i
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range items {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			v, err := fn(gctx, items[i])
			results[i].Value = v
			results[i].Err = err
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// FailedIndices returns the indices of results that carry an error.
func FailedIndices[R any](results []ItemResult[R]) []int {
	var failed []int
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.Index)
		}
	}
	return failed
}
