// Package pipe implements the bounded multi-buffer handoff between a
// producer (the wire-frame reader) and a consumer (the COPY loader):
// a fixed ring of arenas, with readiness signaled through a pair of
// counting semaphores so a full consumer backpressures the producer
// without either side polling in a spin loop.
//
// The ring is built on two counting semaphores and a bounded wait.
// pipe_linux.go implements that directly on Linux eventfds via
// golang.org/x/sys/unix; pipe_other.go is a portable fallback for
// non-Linux builds using golang.org/x/sync/semaphore, preserving the
// same acquire/signal contract.
package pipe

import (
	"fmt"
	"sync/atomic"

	"github.com/sensorbridge/sensorbridge/internal/arena"
	"github.com/sensorbridge/sensorbridge/internal/errs"
)

// eventCounter is the minimal interface the Linux and portable
// implementations both provide: a counting semaphore with a bounded
// wait, matching eventfd's poll+read contract.
type eventCounter interface {
	// wait blocks until a unit is available or timeoutMs elapses,
	// returning false on timeout. A negative timeoutMs blocks forever.
	wait(timeoutMs int) bool
	// signal makes one more unit available.
	signal()
	// close releases any OS resources backing the counter.
	close()
}

// Pipe is a fixed ring of arenas shared between one producer and one
// consumer goroutine. BufCount-1 buffers start writable, leaving one
// buffer excluded as the producer's in-progress slot.
type Pipe struct {
	bufCount uint32
	buffers  []*arena.Arena

	writeBufIdx atomic.Uint32
	readBufIdx  atomic.Uint32
	fullCount   atomic.Int64

	writeReady eventCounter
	readReady  eventCounter

	// PacketSize, ItemMaxCount and BufferMaxFill are set once the
	// owning table's schema is known (see SetPacketSize).
	PacketSize    int
	ItemMaxCount  int
	BufferMaxFill int
}

// New allocates a Pipe with bufCount buffers of bufSize bytes each,
// backed by their own arenas.
func New(bufCount uint32, bufSize uint64) (*Pipe, error) {
	if bufCount < 2 {
		return nil, errs.New(errs.ConfigInvalid, "pipe: buf_count must be >= 2, got %d", bufCount)
	}
	if bufSize == 0 {
		return nil, errs.New(errs.ConfigInvalid, "pipe: buf_size must be > 0")
	}

	p := &Pipe{bufCount: bufCount, buffers: make([]*arena.Arena, bufCount)}
	for i := range p.buffers {
		p.buffers[i] = arena.New(make([]byte, bufSize))
	}

	wr, rd, err := newEventCounters()
	if err != nil {
		return nil, err
	}
	p.writeReady = wr
	p.readReady = rd

	// bufCount-1 buffers are immediately writable; the buffer currently
	// pointed to by writeBufIdx is excluded since it is "in progress".
	for i := uint32(0); i < bufCount-1; i++ {
		p.writeReady.signal()
	}

	return p, nil
}

// SetPacketSize records the per-row packet size for this pipe's table
// and derives ItemMaxCount/BufferMaxFill from a single buffer's
// capacity.
func (p *Pipe) SetPacketSize(packetSize int) {
	p.PacketSize = packetSize
	if packetSize <= 0 || len(p.buffers) == 0 {
		return
	}
	cap := int(p.buffers[0].Cap())
	p.ItemMaxCount = cap / packetSize
	p.BufferMaxFill = p.PacketSize * p.ItemMaxCount
}

// CurrentWriteBuffer returns the buffer writeBufIdx currently points at,
// without consuming a write-ready token or rotating the ring. Used to
// seed a producer's in-progress buffer before any rotation has happened.
func (p *Pipe) CurrentWriteBuffer() *arena.Arena {
	return p.buffers[p.writeBufIdx.Load()]
}

// AcquireWriteBuffer blocks up to timeoutMs (negative means forever)
// for the next buffer to become writable, clears it, advances the
// write cursor, and signals the consumer side. Returns nil, false on
// timeout.
func (p *Pipe) AcquireWriteBuffer(timeoutMs int) (*arena.Arena, bool) {
	if !p.writeReady.wait(timeoutMs) {
		return nil, false
	}

	cur := p.writeBufIdx.Load()
	next := (cur + 1) % p.bufCount
	p.writeBufIdx.Store(next)
	p.fullCount.Add(1)
	p.readReady.signal()

	buf := p.buffers[next]
	buf.Clear()
	return buf, true
}

// AcquireReadBuffer blocks up to timeoutMs for the next full buffer,
// advances the read cursor, and signals the producer side that one
// slot has been freed.
func (p *Pipe) AcquireReadBuffer(timeoutMs int) (*arena.Arena, bool) {
	if !p.readReady.wait(timeoutMs) {
		return nil, false
	}

	cur := p.readBufIdx.Load()
	p.readBufIdx.Store((cur + 1) % p.bufCount)
	p.fullCount.Add(-1)
	p.writeReady.signal()

	return p.buffers[cur], true
}

// Flush forces the current write buffer into the ready queue even if
// it is not full, used when a producer disconnects with buffered data
// still pending.
func (p *Pipe) Flush(timeoutMs int) error {
	cur := p.writeBufIdx.Load()
	curBuf := p.buffers[cur]
	if curBuf.Pos() == 0 {
		return nil
	}

	if !p.writeReady.wait(timeoutMs) {
		return errs.New(errs.IOTransient, "pipe: flush timed out waiting for a free buffer slot")
	}

	next := (cur + 1) % p.bufCount
	p.writeBufIdx.Store(next)
	p.fullCount.Add(1)
	p.readReady.signal()
	return nil
}

// FullBufferCount reports how many buffers currently hold unread data.
func (p *Pipe) FullBufferCount() int64 { return p.fullCount.Load() }

// BufCount returns the number of buffers in the ring.
func (p *Pipe) BufCount() uint32 { return p.bufCount }

// Close releases the pipe's OS resources. It does not free the arenas.
func (p *Pipe) Close() {
	p.writeReady.close()
	p.readReady.close()
}

func (p *Pipe) String() string {
	return fmt.Sprintf("pipe{bufCount=%d writeIdx=%d readIdx=%d full=%d}",
		p.bufCount, p.writeBufIdx.Load(), p.readBufIdx.Load(), p.fullCount.Load())
}
