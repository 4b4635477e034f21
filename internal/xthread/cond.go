package xthread

import (
	"sync"
	"time"
)

// Cond is a condition variable with a timed wait, built on sync.Cond
// plus a helper goroutine since sync.Cond has no native deadline. The
// helper goroutine is only spawned when WaitTimeout is actually called
// with a finite duration, keeping the common (untimed) path allocation
// free.
type Cond struct {
	L    sync.Locker
	cond *sync.Cond
	once sync.Once
}

// NewCond constructs a Cond guarded by l.
func NewCond(l sync.Locker) *Cond {
	return &Cond{L: l, cond: sync.NewCond(l)}
}

// Wait blocks until Signal or Broadcast. The caller must hold L.
func (c *Cond) Wait() { c.cond.Wait() }

// Signal wakes one waiter.
func (c *Cond) Signal() { c.cond.Signal() }

// Broadcast wakes all waiters.
func (c *Cond) Broadcast() { c.cond.Broadcast() }

// WaitTimeout blocks until the next Signal/Broadcast or until d elapses,
// returning false on timeout. d == Forever disables the timeout. The
// caller must hold L both on entry and on return, matching Wait's
// contract. Like sync.Cond.Wait, a single call may return spuriously
// before d elapses; callers loop on their own predicate as usual.
func (c *Cond) WaitTimeout(d time.Duration) bool {
	if d == Forever {
		c.cond.Wait()
		return true
	}

	deadline := time.Now().Add(d)
	fired := make(chan struct{})
	timer := time.AfterFunc(d, func() {
		close(fired)
		c.cond.Broadcast()
	})
	defer timer.Stop()

	c.cond.Wait()

	select {
	case <-fired:
		return false
	default:
		return time.Now().Before(deadline)
	}
}
