// Package loader drives the event-driven consumer loop that drains a
// pipe's full buffers and bulk-inserts them into PostgreSQL via the
// binary COPY protocol, wrapped in a BEGIN/COMMIT transaction envelope.
package loader

import (
	"bytes"
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sensorbridge/sensorbridge/internal/arena"
	"github.com/sensorbridge/sensorbridge/internal/copyenc"
	"github.com/sensorbridge/sensorbridge/internal/deadletter"
	"github.com/sensorbridge/sensorbridge/internal/errs"
	"github.com/sensorbridge/sensorbridge/internal/pipe"
	"github.com/sensorbridge/sensorbridge/internal/schema"
	"github.com/sensorbridge/sensorbridge/internal/xthread"
)

// pollInterval is the epoll_wait timeout used for the consumer's
// read-event wait.
const pollInterval = 100 * time.Millisecond

// maxConsecutiveTimeouts is the number of consecutive poll timeouts
// that escalates the loop to a fatal exit.
const maxConsecutiveTimeouts = 5

// maxConsecutiveFailures is the number of consecutive COPY/transaction
// failures after which the loop exits.
const maxConsecutiveFailures = 5

// Loader drains Pipe's full buffers for one sensor table and bulk
// inserts them into Conn using Table's precomputed schema/COPY command.
type Loader struct {
	Pipe    *pipe.Pipe
	Conn    *pgx.Conn
	Table   *schema.TableInfo
	Unit    copyenc.TimestampUnit
	Control *xthread.Control
	Log     *zap.SugaredLogger

	// DeadLetterDir, if non-empty, receives a dead-letter record per
	// failed batch, appended to one file per table per day (see package
	// deadletter).
	DeadLetterDir string
}

// Run blocks draining Pipe until Control requests a stop or the
// consecutive-timeout/failure escalation fires, substituting a plain
// poll-with-timeout on the pipe's own read-ready counter for a real
// epoll fd set, since this loop only ever watches one source.
func (l *Loader) Run(ctx context.Context) error {
	timeouts := 0
	failures := 0

	for !l.Control.ShouldStop() {
		l.Control.SetWaiting(true)
		buf, ok := l.Pipe.AcquireReadBuffer(int(pollInterval / time.Millisecond))
		l.Control.SetWaiting(false)

		if !ok {
			timeouts++
			if timeouts >= maxConsecutiveTimeouts {
				return errs.New(errs.IOTransient, "loader: %s: %d consecutive poll timeouts, exiting", l.Table.Schema.TableName, timeouts)
			}
			continue
		}
		timeouts = 0

		if err := l.drainAvailable(ctx, buf); err != nil {
			failures++
			l.Log.Errorw("batch insert failed", "table", l.Table.Schema.TableName, "error", err, "consecutive_failures", failures)
			if failures >= maxConsecutiveFailures {
				return errs.Wrap(errs.DBCopyFailed, err)
			}
			continue
		}
		failures = 0
	}
	return nil
}

// drainAvailable processes first and any buffer already drains non-blocking,
// matching the inner "while (buf = acquire_read_buffer(0)) != null" loop.
func (l *Loader) drainAvailable(ctx context.Context, first *arena.Arena) error {
	buf := first
	for buf != nil {
		if err := l.insertBuffer(ctx, buf); err != nil {
			return err
		}

		var ok bool
		buf, ok = l.Pipe.AcquireReadBuffer(0)
		if !ok {
			buf = nil
		}
	}
	return nil
}

func (l *Loader) insertBuffer(ctx context.Context, buf *arena.Arena) error {
	data := buf.Bytes()
	rowSize := l.Table.Schema.RowSize
	if rowSize == 0 || len(data)%rowSize != 0 {
		return errs.New(errs.EncodingError, "loader: buffer used=%d not a multiple of packet_size=%d", len(data), rowSize)
	}
	itemCount := len(data) / rowSize
	if itemCount == 0 {
		return nil
	}

	encoded, err := copyenc.EncodeBatch(l.Table.Schema, data, itemCount, l.Unit)
	if err != nil {
		return errs.Wrap(errs.EncodingError, err)
	}

	if err := l.insert(ctx, encoded); err != nil {
		if l.DeadLetterDir != "" {
			if derr := deadletter.Write(l.DeadLetterDir, l.Table.Schema.TableName, data); derr != nil {
				l.Log.Errorw("failed to write dead-letter file", "table", l.Table.Schema.TableName, "error", derr)
			}
		}
		return err
	}
	return nil
}

// insert performs the BEGIN -> COPY -> COMMIT/ROLLBACK envelope, using
// pgconn.PgConn.CopyFrom to stream encoded (the full binary COPY
// payload, header included) in one call, so the whole batch is
// delivered as a single COPY data stream.
func (l *Loader) insert(ctx context.Context, encoded []byte) error {
	if _, err := l.Conn.Exec(ctx, "BEGIN"); err != nil {
		return errs.Wrap(errs.DBCommandFailed, err)
	}

	_, copyErr := l.Conn.PgConn().CopyFrom(ctx, bytes.NewReader(encoded), l.Table.CopyCommand)
	if copyErr != nil {
		_, _ = l.Conn.Exec(ctx, "ROLLBACK")
		return errs.Wrap(errs.DBCopyFailed, copyErr)
	}

	if _, err := l.Conn.Exec(ctx, "COMMIT"); err != nil {
		return errs.Wrap(errs.DBCommandFailed, err)
	}
	return nil
}
