package provision

import (
	"errors"
	"sync"
	"time"

	"github.com/cjeanneret/BlindGo/internal/debug"
)

// DefaultTimeout is how long setup mode stays active without a new request.
const DefaultTimeout = 5 * time.Minute

// ErrNotActive is returned by Apply outside of setup mode.
var ErrNotActive = errors.New("provisioning mode not active")

// Hooks are run on the control loop when setup mode starts and stops.
type Hooks struct {
	OnStarted func()
	OnStopped func()
}

// Manager tracks setup mode. Start, Tick and Stop belong to the control
// loop; Active and Apply may be called from any goroutine.
type Manager struct {
	mu       sync.Mutex
	timeout  time.Duration
	active   bool
	deadline time.Time
	hooks    Hooks
	now      func() time.Time
}

// New creates an idle manager.
func New(timeout time.Duration, hooks Hooks) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		timeout: timeout,
		hooks:   hooks,
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// RequestSetup starts setup mode now.
func (m *Manager) RequestSetup() {
	m.Start(m.now())
}

// Start enters setup mode until now+timeout. A request while already
// active only extends the deadline.
func (m *Manager) Start(now time.Time) {
	m.mu.Lock()
	wasActive := m.active
	m.active = true
	m.deadline = now.Add(m.timeout)
	deadline := m.deadline
	m.mu.Unlock()

	if wasActive {
		debug.Verbose("Provisioning extended until %s", deadline.Format(time.TimeOnly))
		return
	}
	debug.Info("Provisioning mode for %v", m.timeout)
	if m.hooks.OnStarted != nil {
		m.hooks.OnStarted()
	}
}

// Tick ends setup mode once its deadline has passed.
func (m *Manager) Tick(now time.Time) {
	m.mu.Lock()
	expired := m.active && !now.Before(m.deadline)
	m.mu.Unlock()

	if expired {
		debug.Info("Provisioning timed out")
		m.Stop()
	}
}

// Stop leaves setup mode. Stopping an idle manager does nothing.
func (m *Manager) Stop() {
	m.mu.Lock()
	wasActive := m.active
	m.active = false
	m.deadline = time.Time{}
	m.mu.Unlock()

	if wasActive && m.hooks.OnStopped != nil {
		m.hooks.OnStopped()
	}
}

// Active reports whether setup mode is on.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Deadline returns when setup mode ends, or the zero time when idle.
func (m *Manager) Deadline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadline
}

// Apply runs fn only while setup mode is active, holding the manager so
// that setup cannot time out halfway through.
func (m *Manager) Apply(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return ErrNotActive
	}
	return fn()
}
