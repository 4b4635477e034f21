// Package producer implements the reader loop that connects to a
// sensor device, receives framed packets, validates them against a
// schema's packet size, and appends their payloads into the sensor's
// write buffer, rotating buffers through the pipe as they fill.
package producer

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/sensorbridge/sensorbridge/internal/arena"
	"github.com/sensorbridge/sensorbridge/internal/pipe"
	"github.com/sensorbridge/sensorbridge/internal/wire"
	"github.com/sensorbridge/sensorbridge/internal/xthread"
)

// recvTimeout bounds a single frame receive; the documented reader loop
// continues past a timeout rather than treating it as an error.
const recvTimeout = 500 * time.Millisecond

// reconnectInterval is the constant 1s backoff used between failed
// connection attempts.
const reconnectInterval = time.Second

// Router routes a frame's unit id to the pipe backing its sensor.
// Returns nil if unitID names no known sensor.
type Router interface {
	Lookup(unitID uint16) (*pipe.Pipe, bool)
}

// Reader connects to address and drives frames from one sensor device
// into the pipes Router resolves them to.
type Reader struct {
	Address string
	Router  Router
	Control *xthread.Control
	Log     *zap.SugaredLogger
}

// Run blocks until Control requests a stop, reconnecting on any socket
// error.
func (r *Reader) Run(ctx context.Context) error {
	for !r.Control.ShouldStop() {
		conn, err := r.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		r.drain(conn)
		conn.Close()
	}
	return nil
}

// connect dials r.Address, retrying with a constant 1s backoff until it
// succeeds, Control requests a stop, or ctx is cancelled.
func (r *Reader) connect(ctx context.Context) (net.Conn, error) {
	retry := backoff.NewConstantBackOff(reconnectInterval)
	d := net.Dialer{}

	for {
		conn, err := d.DialContext(ctx, "tcp", r.Address)
		if err == nil {
			return conn, nil
		}
		r.Log.Warnw("failed to connect to sensor, retrying", "address", r.Address, "error", err)

		if r.Control.ShouldStop() {
			return nil, ctx.Err()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry.NextBackOff()):
		}
	}
}

// drain runs the inner receive loop for one connection, returning when
// the socket errors (triggering reconnection in Run) or a stop is
// requested.
func (r *Reader) drain(conn net.Conn) {
	frameBuf := make([]byte, wire.MaxFrameSize)

	var curBuf *arena.Arena
	var curPipe *pipe.Pipe

	defer func() {
		if curPipe != nil {
			if err := curPipe.Flush(-1); err != nil {
				r.Log.Warnw("flush on disconnect failed", "error", err)
			}
		}
	}()

	for !r.Control.ShouldStop() {
		_ = conn.SetReadDeadline(time.Now().Add(recvTimeout))
		raw, err := wire.ReceiveFrame(conn, frameBuf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			r.Log.Debugw("frame receive failed, reconnecting", "error", err)
			return
		}

		frame, err := wire.ParseFrame(raw)
		if err != nil {
			r.Log.Warnw("dropping invalid frame", "error", err)
			continue
		}
		if frame.FunctionCode != wire.ReadHoldingRegisters {
			r.Log.Warnw("dropping frame with unsupported function code", "function_code", frame.FunctionCode)
			continue
		}

		p, ok := r.Router.Lookup(frame.UnitID)
		if !ok {
			r.Log.Warnw("dropping frame for unknown sensor", "unit_id", frame.UnitID)
			continue
		}

		if p.PacketSize != 0 && len(frame.Data) != p.PacketSize {
			r.Log.Warnw("packet size mismatch, resetting connection",
				"unit_id", frame.UnitID, "expected", p.PacketSize, "got", len(frame.Data))
			return
		}

		if p != curPipe {
			curPipe = p
			curBuf = p.CurrentWriteBuffer()
		}

		if curBuf == nil || int(curBuf.Pos())+len(frame.Data) > p.BufferMaxFill {
			var acquired bool
			curBuf, acquired = p.AcquireWriteBuffer(-1)
			if !acquired {
				r.Log.Errorw("failed to acquire write buffer")
				return
			}
		}

		if curBuf.PushCopy(frame.Data) == nil {
			r.Log.Errorw("write buffer rejected payload copy", "unit_id", frame.UnitID)
			return
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
