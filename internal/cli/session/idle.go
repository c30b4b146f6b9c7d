package session

import (
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a signed-in session may sit without
// activity before it is closed.
const DefaultIdleTimeout = 30 * time.Minute

// IdleMonitor fires a callback once after a period of inactivity.
// Touch resets the countdown; after firing, the monitor stays off
// until Start is called again.
type IdleMonitor struct {
	timeout time.Duration
	onIdle  func()

	mu     sync.Mutex
	timer  *time.Timer
	active bool
}

// NewIdleMonitor creates a monitor that calls onIdle after timeout of
// inactivity. The monitor starts stopped.
func NewIdleMonitor(timeout time.Duration, onIdle func()) *IdleMonitor {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &IdleMonitor{
		timeout: timeout,
		onIdle:  onIdle,
	}
}

// Start arms the monitor. Calling Start on a running monitor is a no-op.
func (m *IdleMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return
	}
	m.active = true
	m.timer = time.AfterFunc(m.timeout, m.fire)
}

// Stop disarms the monitor without firing.
func (m *IdleMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = false
	if m.timer != nil {
		m.timer.Stop()
	}
}

// Touch restarts the countdown. Activity on a stopped or already-fired
// monitor is ignored.
func (m *IdleMonitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return
	}
	m.timer.Stop()
	m.timer = time.AfterFunc(m.timeout, m.fire)
}

func (m *IdleMonitor) fire() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	// One shot: the callback runs once per Start, never rearms itself.
	m.active = false
	m.mu.Unlock()

	if m.onIdle != nil {
		m.onIdle()
	}
}
