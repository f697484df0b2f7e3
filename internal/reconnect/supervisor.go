package reconnect

import (
	"log/slog"
	"sync"
	"time"

	"plenum/internal/logging"
)

// State is the lifecycle position of one supervised connection.
type State int

const (
	// StateIdle is both the initial state and the terminal state after Stop.
	StateIdle State = iota
	// StateConnecting means a dial attempt is in flight.
	StateConnecting
	// StateOpen means the connection is established.
	StateOpen
	// StateClosed means the connection dropped; a retry is pending or
	// available via Reconnect.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Supervisor tracks the connect/open/closed cycle of a single stream and
// schedules exactly one retry per close after a fixed delay. It owns no
// sockets; the retry callback performs the actual dial and reports back
// through the Mark methods.
//
// After Stop, every transition is a no-op: in-flight network callbacks that
// land late cannot resurrect the connection.
type Supervisor struct {
	mu      sync.Mutex
	state   State
	delay   time.Duration
	retry   func()
	timer   *time.Timer
	stopped bool
	logger  *slog.Logger
}

// New builds a supervisor that invokes retry after delay whenever the
// connection closes.
func New(delay time.Duration, retry func(), logger *slog.Logger) *Supervisor {
	if delay <= 0 {
		delay = 5 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Supervisor{
		state:  StateIdle,
		delay:  delay,
		retry:  retry,
		logger: logger,
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginConnect transitions into connecting. It reports false when the
// supervisor has been stopped or a connect/open cycle is already active.
func (s *Supervisor) BeginConnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if s.state == StateConnecting || s.state == StateOpen {
		return false
	}
	s.cancelTimerLocked()
	s.state = StateConnecting
	return true
}

// MarkOpen records a successful dial.
func (s *Supervisor) MarkOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.state != StateConnecting {
		return
	}
	s.state = StateOpen
}

// MarkClosed records a dropped or failed connection and schedules one retry
// after the fixed delay. Closing an already-closed connection does not
// schedule a second retry.
func (s *Supervisor) MarkClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.state == StateClosed || s.state == StateIdle {
		return
	}
	s.state = StateClosed
	if s.retry == nil {
		return
	}
	s.logger.Debug("connection closed; retry scheduled",
		logging.Duration("delay", s.delay),
	)
	s.timer = time.AfterFunc(s.delay, s.fireRetry)
}

// Reconnect short-circuits the retry delay. It is permitted only from the
// closed state; anywhere else it reports false and does nothing.
func (s *Supervisor) Reconnect() bool {
	s.mu.Lock()
	if s.stopped || s.state != StateClosed {
		s.mu.Unlock()
		return false
	}
	s.cancelTimerLocked()
	retry := s.retry
	s.mu.Unlock()

	if retry != nil {
		retry()
	}
	return true
}

// Stop moves to the terminal idle state and cancels any pending retry. No
// further transitions are permitted.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.state = StateIdle
	s.cancelTimerLocked()
}

func (s *Supervisor) fireRetry() {
	s.mu.Lock()
	if s.stopped || s.state != StateClosed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	retry := s.retry
	s.mu.Unlock()

	if retry != nil {
		retry()
	}
}

func (s *Supervisor) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
