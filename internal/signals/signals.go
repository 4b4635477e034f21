// Package signals handles process-wide signal delivery: cooperative
// shutdown on SIGINT/SIGTERM, and best-effort crash forensics on
// SIGSEGV/SIGABRT/SIGFPE/SIGILL before the process dies.
package signals

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sensorbridge/sensorbridge/internal/pipe"
)

// Interrupted wraps the os.Signal that caused a cooperative shutdown, so
// callers can distinguish it from a genuine error.
type Interrupted struct{ Signal os.Signal }

func (i Interrupted) Error() string { return fmt.Sprintf("interrupted by signal %s", i.Signal) }

// WaitInterrupted blocks until SIGINT, SIGTERM, or ctx cancellation,
// returning an Interrupted error in the first case and ctx.Err() in the
// second.
func WaitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case sig := <-ch:
		return Interrupted{Signal: sig}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Context is the process-wide record the fatal-signal handler consults:
// a reference to the pipe (if any) whose contents should be snapshotted
// on crash, and where dump files are written.
type Context struct {
	Pipe    *pipe.Pipe
	DumpDir string
	Log     *zap.SugaredLogger
}

// WatchFatal installs a handler for SIGSEGV, SIGABRT, SIGFPE, and
// SIGILL that writes a crash dump and pipe snapshot (when sc.Pipe is
// set) before re-raising the original signal. It returns a stop
// function that cancels the watch.
//
// Go's runtime does not support true async-signal-safe handlers for
// these signals; this instead preserves in-flight state (stack traces,
// a bounded memory-region dump) before dying, using runtime.Stack and a
// /proc/self/maps reader.
func WatchFatal(sc Context) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGSEGV, syscall.SIGABRT, syscall.SIGFPE, syscall.SIGILL)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			handleFatal(sc, sig)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}

func handleFatal(sc Context, sig os.Signal) {
	sysSig, _ := sig.(syscall.Signal)

	path, err := writeCrashDump(sc.DumpDir, int(sysSig), os.Getpid())
	if err != nil && sc.Log != nil {
		sc.Log.Errorw("failed to write crash dump", "error", err)
	} else if sc.Log != nil {
		sc.Log.Errorw("fatal signal received, wrote crash dump", "signal", sig, "path", path)
	}

	if sc.Pipe != nil {
		if _, err := sc.Pipe.Dump(sc.DumpDir, dumpTimestamp()); err != nil && sc.Log != nil {
			sc.Log.Errorw("failed to write pipe snapshot on crash", "error", err)
		}
	}

	signal.Reset(sysSig)
	_ = syscall.Kill(os.Getpid(), sysSig)
}
