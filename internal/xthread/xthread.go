// Package xthread provides the synchronization primitives used by the
// thread-group layer: a timed mutex, a timed condition variable, a
// counting semaphore, a fixed-width barrier, and a thread-control
// block. Go's goroutines replace OS threads as the unit of concurrency,
// but every primitive still exposes the same try/timed/blocking shape
// pthread wrappers traditionally do, since the thread-group manager and
// the pipe both depend on bounded waits to make cooperative shutdown
// provably terminating.
package xthread

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Forever disables a timeout on a blocking primitive.
const Forever time.Duration = -1

// Mutex is a mutex built on a one-slot channel, with try/timed/blocking
// acquisition.
type Mutex struct {
	mu sync.Mutex
	ch chan struct{}
	on sync.Once
}

func (m *Mutex) init() {
	m.on.Do(func() { m.ch = make(chan struct{}, 1) })
}

// Lock blocks until the mutex is acquired.
func (m *Mutex) Lock() {
	m.init()
	m.ch <- struct{}{}
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool {
	m.init()
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// LockTimeout attempts to acquire the mutex within d, or blocks forever
// if d is Forever. A zero duration behaves like TryLock.
func (m *Mutex) LockTimeout(d time.Duration) bool {
	m.init()
	if d == Forever {
		m.Lock()
		return true
	}
	if d <= 0 {
		return m.TryLock()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case m.ch <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

// Unlock releases the mutex. Unlocking an unlocked Mutex panics, the
// same contract as sync.Mutex.
func (m *Mutex) Unlock() {
	m.init()
	select {
	case <-m.ch:
	default:
		panic("xthread: unlock of unlocked mutex")
	}
}

// semCapacity bounds how many outstanding Posts a Semaphore can hold
// in flight. It is large enough that no realistic thread-group use of
// this primitive (barriers, readiness counting) approaches it.
const semCapacity = 1 << 20

// Semaphore is a counting semaphore used by the generic thread-primitive
// layer (distinct from the pipe's own eventfd-backed counters in
// package pipe, which must match Linux eventfd semantics exactly).
type Semaphore struct {
	w *semaphore.Weighted
}

// NewSemaphore creates a counting semaphore initialized to n.
func NewSemaphore(n int64) *Semaphore {
	s := &Semaphore{w: semaphore.NewWeighted(semCapacity)}
	if n < semCapacity {
		// Pre-consume the head room above n so that exactly n tokens are
		// immediately available, matching POSIX sem_init(sem, 0, n).
		_ = s.w.Acquire(context.Background(), semCapacity-n)
	}
	return s
}

// Acquire blocks until a token is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	return s.w.Acquire(ctx, 1)
}

// TryAcquire attempts to take a token without blocking.
func (s *Semaphore) TryAcquire() bool {
	return s.w.TryAcquire(1)
}

// AcquireTimeout attempts to take a token within d.
func (s *Semaphore) AcquireTimeout(d time.Duration) bool {
	if d <= 0 {
		return s.TryAcquire()
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.Acquire(ctx) == nil
}

// Post releases a token back to the semaphore.
func (s *Semaphore) Post() {
	s.w.Release(1)
}

// Control is the thread-control block shared between a worker goroutine
// and whatever coordinates its lifecycle: a should-stop request, a
// has-stopped acknowledgement, and a waiting-state flag, all guarded by
// one mutex+cond pair.
type Control struct {
	mu          sync.Mutex
	cond        *sync.Cond
	shouldStop  bool
	hasStopped  bool
	waitingFlag bool
}

// NewControl constructs a ready-to-use Control.
func NewControl() *Control {
	c := &Control{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// RequestStop sets the should-stop flag and wakes any waiter.
func (c *Control) RequestStop() {
	c.mu.Lock()
	c.shouldStop = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// ShouldStop reports whether a stop has been requested.
func (c *Control) ShouldStop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shouldStop
}

// MarkStopped records that the worker has exited its loop.
func (c *Control) MarkStopped() {
	c.mu.Lock()
	c.hasStopped = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// HasStopped reports whether MarkStopped has been called.
func (c *Control) HasStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasStopped
}

// SetWaiting records whether the worker is currently parked in a
// blocking wait, for diagnostics/dump purposes.
func (c *Control) SetWaiting(w bool) {
	c.mu.Lock()
	c.waitingFlag = w
	c.mu.Unlock()
}

// Waiting reports the last value passed to SetWaiting.
func (c *Control) Waiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitingFlag
}
