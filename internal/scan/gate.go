package scan

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// gate is the single choke point for filesystem calls: every readdir and
// every stat acquires a slot before touching the filesystem. Waiters are
// served FIFO and the budget is never momentarily exceeded, both guaranteed
// by semaphore.Weighted.
type gate struct {
	sem *semaphore.Weighted
}

func newGate(slots int) *gate {
	return &gate{sem: semaphore.NewWeighted(int64(slots))}
}

// acquire blocks until a slot frees. Acquisition deliberately does not
// observe scan cancellation: stopping is polled between filesystem calls,
// never by abandoning one already committed to, so an in-flight directory
// always finishes its current batch.
func (g *gate) acquire() {
	_ = g.sem.Acquire(context.Background(), 1)
}

func (g *gate) release() {
	g.sem.Release(1)
}
