package xthread

import "sync"

// Barrier is a fixed-width rendezvous point: the N-th goroutine to call
// Wait releases all N. Used by the startup sequence (see
// internal/handler) so that neither the producer nor the consumer
// enters its main loop until the other has completed setup.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	width   int
	waiting int
	gen     uint64
}

// NewBarrier constructs a barrier for width participants. Panics if
// width <= 0, which would never release.
func NewBarrier(width int) *Barrier {
	if width <= 0 {
		panic("xthread: barrier width must be positive")
	}
	b := &Barrier{width: width}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until width goroutines have called Wait, then releases
// them all simultaneously.
func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := b.gen
	b.waiting++
	if b.waiting == b.width {
		b.waiting = 0
		b.gen++
		b.cond.Broadcast()
		return
	}
	for gen == b.gen {
		b.cond.Wait()
	}
}
