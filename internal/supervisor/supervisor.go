// Package supervisor implements the startup sequence: load
// configuration, build one thread group per enabled data handler, and
// join them, handing the first handler-registered pipe to the caller so
// a fatal-signal handler can snapshot it.
package supervisor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sensorbridge/sensorbridge/internal/config"
	"github.com/sensorbridge/sensorbridge/internal/handler"
	"github.com/sensorbridge/sensorbridge/internal/pipe"
	"github.com/sensorbridge/sensorbridge/internal/threadgroup"
)

// pipeProvider is implemented by handler variants that allocate a pipe
// worth snapshotting on a fatal signal.
type pipeProvider interface {
	DumpPipe() *pipe.Pipe
}

// stoppable is implemented by handler variants whose Run loop watches a
// cooperative stop flag distinct from ctx cancellation.
type stoppable interface {
	RequestStop()
}

// Supervisor owns every running handler and the thread-group manager
// joining them.
type Supervisor struct {
	log      *zap.SugaredLogger
	manager  *threadgroup.Manager
	handlers []handler.Handler

	shutdown bool

	// DumpPipe is the first pipe allocated by any enabled handler, or
	// nil if none was. Set by New.
	DumpPipe *pipe.Pipe
}

// New builds a Supervisor from the top-level configuration, calling
// Init on every enabled handler.
func New(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Supervisor, error) {
	s := &Supervisor{log: log}
	s.manager = threadgroup.NewManager(func() bool { return s.shutdown }, log)

	for _, hc := range cfg.DataHandlers {
		if !hc.Enabled {
			continue
		}

		h, err := handler.New(hc.Variant, hc, log)
		if err != nil {
			return nil, fmt.Errorf("supervisor: build handler %s: %w", hc.Name, err)
		}
		if err := h.Init(ctx); err != nil {
			return nil, fmt.Errorf("supervisor: init handler %s: %w", hc.Name, err)
		}

		if s.DumpPipe == nil {
			if pp, ok := h.(pipeProvider); ok {
				s.DumpPipe = pp.DumpPipe()
			}
		}

		s.handlers = append(s.handlers, h)
		s.manager.Add(&threadgroup.Group{
			Name:    hc.Name,
			Context: ctx,
			Workers: []threadgroup.Worker{
				func(c any) error { return h.Run(c.(context.Context)) },
			},
			Cleanup: func(c any) { _ = h.Finalize(c.(context.Context)) },
		})
	}

	return s, nil
}

// Run starts every handler's thread group and blocks until they have
// all completed or a shutdown has been requested.
func (s *Supervisor) Run() error {
	s.manager.StartAll()
	return s.manager.WaitForAll()
}

// RequestShutdown asks every handler to stop its workers and sets the
// flag the manager polls while waiting for them to finish.
func (s *Supervisor) RequestShutdown() {
	s.shutdown = true
	for _, h := range s.handlers {
		if st, ok := h.(stoppable); ok {
			st.RequestStop()
		}
	}
}
