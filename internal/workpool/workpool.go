// Package workpool runs a function over a slice with bounded concurrency.
package workpool

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Worker processes one item. i is the item's index in the input slice.
type Worker[T, R any] func(ctx context.Context, item T, i int) (R, error)

// Run applies worker to every item using at most limit goroutines and
// returns the results in input order. The effective limit is clamped to
// [1, len(items)]. The first worker error cancels the remaining work and is
// returned; workers that must not abort the pool should swallow their own
// errors. If ctx is canceled, no new items are started and ctx's error is
// returned.
func Run[T, R any](ctx context.Context, items []T, limit int, worker Worker[T, R]) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}
	if limit > len(items) {
		limit = len(items)
	}
	if limit < 1 {
		limit = 1
	}

	results := make([]R, len(items))
	var cursor atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < limit; w++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := int(cursor.Add(1) - 1)
				if i >= len(items) {
					return nil
				}
				r, err := worker(gctx, items[i], i)
				if err != nil {
					return err
				}
				results[i] = r
			}
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return results, nil
}
