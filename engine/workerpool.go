package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// WorkerPool runs blocking work on a bounded number of goroutines.
//
// Cancellation is best-effort. When ctx ends before the work does, Submit
// returns ctx.Err() at once and the eventual result is discarded, but the
// work itself keeps running (and keeps its slot) until it returns or
// notices ctx on its own.
type WorkerPool struct {
	sem  *semaphore.Weighted
	size int
}

// NewWorkerPool creates a pool with room for size concurrent jobs.
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the pool capacity.
func (p *WorkerPool) Size() int { return p.size }

// Submit runs fn on the pool and waits for its result or for ctx to end,
// whichever comes first. Waiting for a free worker counts against ctx.
// A panic in fn is returned as an error.
func Submit[T any](ctx context.Context, p *WorkerPool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("worker panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
