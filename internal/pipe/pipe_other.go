//go:build !linux

package pipe

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// semCounter is a portable stand-in for eventfdCounter on non-Linux
// builds, implemented with golang.org/x/sync/semaphore so the pipe's
// acquire/signal contract holds even where eventfd is unavailable.
type semCounter struct {
	w *semaphore.Weighted
}

func newEventCounters() (eventCounter, eventCounter, error) {
	wr := semaphore.NewWeighted(1 << 30)
	rd := semaphore.NewWeighted(1 << 30)
	// Both counters start with no units available: the whole weight is
	// taken up front, so each signal releases exactly one unit.
	wr.TryAcquire(1 << 30)
	rd.TryAcquire(1 << 30)
	return &semCounter{w: wr}, &semCounter{w: rd}, nil
}

func (c *semCounter) wait(timeoutMs int) bool {
	if timeoutMs < 0 {
		return c.w.Acquire(context.Background(), 1) == nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()
	return c.w.Acquire(ctx, 1) == nil
}

func (c *semCounter) signal() {
	c.w.Release(1)
}

func (c *semCounter) close() {}
