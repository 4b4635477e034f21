package signals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitInterruptedReturnsCtxErrOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitInterrupted(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitInterruptedBlocksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := WaitInterrupted(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestInterruptedErrorMessage(t *testing.T) {
	var err error = Interrupted{Signal: signalStub("SIGTERM")}
	require.Contains(t, err.Error(), "SIGTERM")

	var target Interrupted
	require.True(t, errors.As(err, &target))
}

type signalStub string

func (s signalStub) String() string { return string(s) }
func (s signalStub) Signal()        {}
