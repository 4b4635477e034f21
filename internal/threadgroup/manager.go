package threadgroup

import (
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// tickInterval bounds how often WaitForAll re-checks the shutdown flag
// while groups are still running.
const tickInterval = time.Second

// ShouldShutdown is polled by the manager (and is expected to be polled
// by every worker's own blocking waits) to decide when to stop waiting
// for groups that are taking too long to notice a shutdown request.
type ShouldShutdown func() bool

// Manager starts and joins every Group handed to it, logging each
// group's completion and giving up once every group has completed or a
// shutdown has been requested.
type Manager struct {
	mu             sync.Mutex
	cond           *sync.Cond
	groups         []*Group
	completed      int
	errs           *multierror.Error
	shouldShutdown ShouldShutdown
	log            *zap.SugaredLogger
}

// NewManager constructs a Manager. shouldShutdown is polled while
// waiting; package supervisor backs it with its own shutdown flag, set
// by Supervisor.RequestShutdown.
func NewManager(shouldShutdown ShouldShutdown, log *zap.SugaredLogger) *Manager {
	m := &Manager{shouldShutdown: shouldShutdown, log: log}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Add registers a group with the manager. Must be called before
// StartAll.
func (m *Manager) Add(g *Group) {
	g.manager = m
	m.groups = append(m.groups, g)
}

// StartAll starts every registered group.
func (m *Manager) StartAll() {
	m.mu.Lock()
	groups := append([]*Group(nil), m.groups...)
	m.mu.Unlock()

	for _, g := range groups {
		g.start(m.log)
	}
	m.log.Infof("started all thread groups")
}

// WaitForAll blocks until every group has completed or a shutdown has
// been requested, whichever comes first. On shutdown, any group that
// has not yet reported completion is treated as completed by the
// manager; it remains the worker's own responsibility to notice the
// shutdown flag and exit, since the manager does not forcibly cancel it.
func (m *Manager) WaitForAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.completed < len(m.groups) && !m.shouldShutdown() {
		m.waitTick()
	}

	if m.shouldShutdown() && m.completed < len(m.groups) {
		m.log.Infof("shutdown requested, marking remaining groups as completed")
		m.completed = len(m.groups)
	}

	m.log.Infof("all groups have completed or shutdown requested")
	if m.errs != nil {
		return m.errs.ErrorOrNil()
	}
	return nil
}

// waitTick waits on the condition for at most tickInterval, re-checking
// the shutdown flag between ticks. Must be called with mu held.
func (m *Manager) waitTick() {
	timer := time.AfterFunc(tickInterval, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer timer.Stop()
	m.cond.Wait()
}

// groupCompleted is called by a Group's monitor once every worker in it
// has returned.
func (m *Manager) groupCompleted(g *Group, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g.completed = true
	g.err = err
	if err != nil {
		m.errs = multierror.Append(m.errs, err)
	}
	m.completed++
	m.log.Infof("group %q completed", g.Name)
	m.cond.Broadcast()
}
