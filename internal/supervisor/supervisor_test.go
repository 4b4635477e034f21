package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sensorbridge/sensorbridge/internal/config"
	"github.com/sensorbridge/sensorbridge/internal/handler"
	"github.com/sensorbridge/sensorbridge/internal/pipe"
)

type fakeHandler struct {
	runBlock chan struct{}
	stopped  chan struct{}
	dumpPipe *pipe.Pipe
}

func (h *fakeHandler) Init(context.Context) error { return nil }

func (h *fakeHandler) Run(ctx context.Context) error {
	select {
	case <-h.runBlock:
	case <-ctx.Done():
	}
	return nil
}

func (h *fakeHandler) RequestStop() {
	close(h.stopped)
	close(h.runBlock)
}

func (h *fakeHandler) Finalize(context.Context) error { return nil }

func (h *fakeHandler) DumpPipe() *pipe.Pipe { return h.dumpPipe }

func registerFakeVariant(t *testing.T, name string, h *fakeHandler) {
	t.Helper()
	handler.Register(name, func(cfg config.DataHandlerConfig, log *zap.SugaredLogger) (handler.Handler, error) {
		return h, nil
	})
}

func TestSupervisorRunCompletesWhenHandlerReturns(t *testing.T) {
	h := &fakeHandler{runBlock: make(chan struct{}), stopped: make(chan struct{})}
	close(h.runBlock) // Run returns immediately

	registerFakeVariant(t, "fake_immediate", h)

	cfg := &config.Config{DataHandlers: []config.DataHandlerConfig{
		{Enabled: true, Name: "h1", Variant: "fake_immediate"},
	}}

	sup, err := supNew(t, cfg)
	require.NoError(t, err)
	require.NoError(t, sup.Run())
}

func TestSupervisorRequestShutdownStopsRunningHandler(t *testing.T) {
	h := &fakeHandler{runBlock: make(chan struct{}), stopped: make(chan struct{})}
	registerFakeVariant(t, "fake_blocking", h)

	cfg := &config.Config{DataHandlers: []config.DataHandlerConfig{
		{Enabled: true, Name: "h1", Variant: "fake_blocking"},
	}}

	sup, err := supNew(t, cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- sup.Run() }()

	time.Sleep(20 * time.Millisecond)
	sup.RequestShutdown()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after RequestShutdown")
	}

	select {
	case <-h.stopped:
	default:
		t.Fatal("handler's RequestStop was never called")
	}
}

func TestSupervisorCapturesDumpPipeFromFirstProvider(t *testing.T) {
	p, err := pipe.New(2, 1024)
	require.NoError(t, err)
	defer p.Close()

	h := &fakeHandler{runBlock: make(chan struct{}), stopped: make(chan struct{}), dumpPipe: p}
	close(h.runBlock)
	registerFakeVariant(t, "fake_with_pipe", h)

	cfg := &config.Config{DataHandlers: []config.DataHandlerConfig{
		{Enabled: true, Name: "h1", Variant: "fake_with_pipe"},
	}}

	sup, err := supNew(t, cfg)
	require.NoError(t, err)
	require.Same(t, p, sup.DumpPipe)
}

func TestSupervisorSkipsDisabledHandlers(t *testing.T) {
	cfg := &config.Config{DataHandlers: []config.DataHandlerConfig{
		{Enabled: false, Name: "h1", Variant: "does_not_matter"},
	}}

	sup, err := supNew(t, cfg)
	require.NoError(t, err)
	require.NoError(t, sup.Run())
}

func supNew(t *testing.T, cfg *config.Config) (*Supervisor, error) {
	t.Helper()
	return New(context.Background(), cfg, zap.NewNop().Sugar())
}
