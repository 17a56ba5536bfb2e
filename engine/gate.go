package engine

import (
	"context"
	"sync/atomic"

	"github.com/use-agent/webextract/models"
	"golang.org/x/sync/semaphore"
)

// Gate bounds how many browser fetches run at once across the process.
// Every successful Acquire must be paired with exactly one Release.
type Gate struct {
	sem    *semaphore.Weighted
	max    int
	active atomic.Int32
}

// NewGate creates a gate admitting at most max holders.
func NewGate(max int) *Gate {
	if max < 1 {
		max = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(max)), max: max}
}

// Acquire blocks until a slot is free or ctx ends.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.active.Add(1)
	return nil
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	g.active.Add(-1)
	g.sem.Release(1)
}

// Stats returns a snapshot of the gate's current state.
func (g *Gate) Stats() models.GateStats {
	return models.GateStats{
		MaxBrowsers:    g.max,
		ActiveBrowsers: int(g.active.Load()),
	}
}
