// Package workerpool fans out CPU-bound merge work (the per-commit
// tree materialization step of a rewrite transaction, spec.md §4.4
// step 3) across goroutines using github.com/sourcegraph/conc, a
// dependency already present in the teacher's module graph
// (transitively, via go-git) and promoted here to direct use.
package workerpool

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// Run executes fn once per item in items, bounded to at most
// concurrency goroutines at a time, and returns the results in the
// same order as items. The first error from any fn call is returned;
// conc's pool cancels the remaining work via ctx in that case.
func Run[T, R any](ctx context.Context, concurrency int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	p := pool.NewWithResults[R]().WithContext(ctx).WithMaxGoroutines(concurrency).WithFirstError()

	for _, item := range items {
		item := item
		p.Go(func(ctx context.Context) (R, error) {
			return fn(ctx, item)
		})
	}

	return p.Wait()
}
