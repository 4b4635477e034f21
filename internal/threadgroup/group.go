// Package threadgroup models a thread-group/thread-manager pairing on
// top of goroutines: an ordered set of worker functions sharing a
// context value, a monitor that joins them and runs a cleanup, and a
// manager that waits for every group to complete or for a cooperative
// shutdown to be requested.
package threadgroup

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Worker is one member of a Group. It receives the group's shared
// context value and must return promptly once it observes shutdown.
type Worker func(ctx any) error

// Cleanup runs once, after every Worker in the group has returned.
type Cleanup func(ctx any)

// Group is an ordered set of workers sharing a context pointer, plus an
// optional cleanup invoked once they have all returned.
type Group struct {
	Name    string
	Workers []Worker
	Context any
	Cleanup Cleanup

	manager   *Manager
	completed bool
	err       error
}

// start launches every worker and a monitor goroutine that joins them,
// runs Cleanup, and reports completion to the manager.
func (g *Group) start(log *zap.SugaredLogger) {
	done := make(chan error, len(g.Workers))
	for i, w := range g.Workers {
		idx, worker := i, w
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("worker %d panicked: %v", idx, r)
					return
				}
			}()
			done <- worker(g.Context)
		}()
	}

	go g.monitor(done, log)
}

func (g *Group) monitor(done <-chan error, log *zap.SugaredLogger) {
	var result *multierror.Error
	for range g.Workers {
		if err := <-done; err != nil {
			result = multierror.Append(result, err)
		}
	}

	log.Infof("all threads in group %q have completed, cleaning up if needed", g.Name)
	if g.Cleanup != nil {
		g.Cleanup(g.Context)
		log.Infof("successfully cleaned up after thread group %q", g.Name)
	}

	var err error
	if result != nil {
		err = result.ErrorOrNil()
	}
	g.manager.groupCompleted(g, err)
}
