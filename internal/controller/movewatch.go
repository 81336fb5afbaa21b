package controller

import (
	"sync"
	"time"

	"github.com/mj1618/quadview/internal/clock"
)

// MoveState tracks whether the controller window is being dragged.
type MoveState int

const (
	// MoveIdle means no move is in progress.
	MoveIdle MoveState = iota
	// MoveMoving means bounds changed within the quiet period.
	MoveMoving
	// MovePending means the move settled and a reshow is owed.
	MovePending
)

func (s MoveState) String() string {
	switch s {
	case MoveMoving:
		return "moving"
	case MovePending:
		return "pending-reshow"
	default:
		return "idle"
	}
}

// moveWatch debounces bounds changes. Each Touch restarts a single-shot
// timer; when it expires the state becomes MovePending and onSettle runs
// once.
type moveWatch struct {
	clock    clock.Clock
	quiet    time.Duration
	onSettle func()

	mu    sync.Mutex
	state MoveState
	timer *clock.Timer
}

func newMoveWatch(clk clock.Clock, quiet time.Duration, onSettle func()) *moveWatch {
	return &moveWatch{clock: clk, quiet: quiet, onSettle: onSettle}
}

// Touch records a bounds change.
func (m *moveWatch) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = MoveMoving
	if m.timer == nil {
		m.timer = m.clock.AfterFunc(m.quiet, m.fire)
		return
	}
	m.timer.Reset(m.quiet)
}

func (m *moveWatch) fire() {
	m.mu.Lock()
	if m.state != MoveMoving {
		m.mu.Unlock()
		return
	}
	m.state = MovePending
	m.mu.Unlock()

	if m.onSettle != nil {
		m.onSettle()
	}
}

// Pending reports whether a settled move still owes a reshow.
func (m *moveWatch) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == MovePending
}

// Done clears a pending reshow. A move that restarted meanwhile is kept.
func (m *moveWatch) Done() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == MovePending {
		m.state = MoveIdle
	}
}

// Stop cancels the timer and returns to idle.
func (m *moveWatch) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.state = MoveIdle
}

// State returns the current state.
func (m *moveWatch) State() MoveState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
