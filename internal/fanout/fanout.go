// Package fanout runs per-item work across a small bounded worker pool
// while keeping results index-aligned with the input.
package fanout

import (
	"context"
	"sync"
)

// maxWorkers bounds concurrent workers; smaller batches use fewer.
const maxWorkers = 4

// Result pairs one item's outcome with its error.
type Result[R any] struct {
	Value R
	Err   error
}

// Map applies fn to every item concurrently and returns results aligned
// with items: out[i] is fn(items[i]) regardless of completion order. The
// context is passed through to fn; cancellation handling is fn's
// responsibility.
func Map[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	out := make([]Result[R], len(items))
	if len(items) == 0 {
		return out
	}

	workers := maxWorkers
	if len(items) < workers {
		workers = len(items)
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i].Value, out[i].Err = fn(ctx, items[i])
		}(i)
	}
	wg.Wait()
	return out
}
