//go:build linux

package pipe

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// eventfdCounter is an eventfd-backed counting semaphore: the eventfd
// is created with EFD_SEMAPHORE, so read(2) decrements the counter by
// exactly one, write(2) with value 1 increments it, and poll(2) blocks
// until it is non-zero.
type eventfdCounter struct {
	fd int
}

func newEventfdCounter() (*eventfdCounter, error) {
	fd, err := unix.Eventfd(0, unix.EFD_SEMAPHORE)
	if err != nil {
		return nil, fmt.Errorf("pipe: eventfd: %w", err)
	}
	return &eventfdCounter{fd: fd}, nil
}

func newEventCounters() (eventCounter, eventCounter, error) {
	wr, err := newEventfdCounter()
	if err != nil {
		return nil, nil, err
	}
	rd, err := newEventfdCounter()
	if err != nil {
		unix.Close(wr.fd)
		return nil, nil, err
	}
	return wr, rd, nil
}

func (c *eventfdCounter) wait(timeoutMs int) bool {
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil || n == 0 {
			return false
		}
		break
	}

	var buf [8]byte
	if _, err := unix.Read(c.fd, buf[:]); err != nil {
		return false
	}
	return true
}

func (c *eventfdCounter) signal() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(c.fd, buf[:])
}

func (c *eventfdCounter) close() {
	_ = unix.Close(c.fd)
}
