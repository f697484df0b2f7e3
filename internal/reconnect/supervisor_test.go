package reconnect_test

import (
	"sync/atomic"
	"testing"
	"time"

	"plenum/internal/reconnect"
)

func TestLifecycleTransitions(t *testing.T) {
	s := reconnect.New(time.Hour, func() {}, nil)

	if got := s.State(); got != reconnect.StateIdle {
		t.Fatalf("initial state = %v", got)
	}
	if !s.BeginConnect() {
		t.Fatal("BeginConnect from idle should succeed")
	}
	if got := s.State(); got != reconnect.StateConnecting {
		t.Fatalf("state after BeginConnect = %v", got)
	}
	if s.BeginConnect() {
		t.Fatal("BeginConnect while connecting should be rejected")
	}
	s.MarkOpen()
	if got := s.State(); got != reconnect.StateOpen {
		t.Fatalf("state after MarkOpen = %v", got)
	}
	s.MarkClosed()
	if got := s.State(); got != reconnect.StateClosed {
		t.Fatalf("state after MarkClosed = %v", got)
	}
}

func TestCloseSchedulesExactlyOneRetry(t *testing.T) {
	var retries atomic.Int32
	s := reconnect.New(20*time.Millisecond, func() { retries.Add(1) }, nil)

	s.BeginConnect()
	s.MarkOpen()
	s.MarkClosed()
	// A duplicate close event must not schedule a second timer.
	s.MarkClosed()

	deadline := time.Now().Add(time.Second)
	for retries.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := retries.Load(); got != 1 {
		t.Fatalf("expected exactly one retry, got %d", got)
	}

	// Allow a grace period to catch a stray second firing.
	time.Sleep(60 * time.Millisecond)
	if got := retries.Load(); got != 1 {
		t.Fatalf("retry fired again: %d", got)
	}
}

func TestManualReconnectOnlyFromClosed(t *testing.T) {
	var retries atomic.Int32
	s := reconnect.New(time.Hour, func() { retries.Add(1) }, nil)

	if s.Reconnect() {
		t.Fatal("Reconnect from idle should be rejected")
	}
	s.BeginConnect()
	if s.Reconnect() {
		t.Fatal("Reconnect while connecting should be rejected")
	}
	s.MarkOpen()
	if s.Reconnect() {
		t.Fatal("Reconnect while open should be rejected")
	}
	s.MarkClosed()
	if !s.Reconnect() {
		t.Fatal("Reconnect from closed should succeed")
	}
	if got := retries.Load(); got != 1 {
		t.Fatalf("manual reconnect should fire retry immediately, got %d", got)
	}
}

func TestManualReconnectShortCircuitsPendingTimer(t *testing.T) {
	var retries atomic.Int32
	s := reconnect.New(time.Hour, func() { retries.Add(1) }, nil)

	s.BeginConnect()
	s.MarkOpen()
	s.MarkClosed()
	if !s.Reconnect() {
		t.Fatal("Reconnect from closed should succeed")
	}

	// The hour-long timer was cancelled; only the manual attempt counts.
	time.Sleep(30 * time.Millisecond)
	if got := retries.Load(); got != 1 {
		t.Fatalf("expected one retry, got %d", got)
	}
}

func TestStopIsTerminal(t *testing.T) {
	var retries atomic.Int32
	s := reconnect.New(10*time.Millisecond, func() { retries.Add(1) }, nil)

	s.BeginConnect()
	s.MarkOpen()
	s.MarkClosed()
	s.Stop()

	if got := s.State(); got != reconnect.StateIdle {
		t.Fatalf("state after Stop = %v", got)
	}
	time.Sleep(40 * time.Millisecond)
	if got := retries.Load(); got != 0 {
		t.Fatalf("pending retry should be cancelled by Stop, fired %d", got)
	}

	// Late callbacks from in-flight network handlers must not transition.
	if s.BeginConnect() {
		t.Fatal("BeginConnect after Stop should be rejected")
	}
	s.MarkOpen()
	s.MarkClosed()
	if s.Reconnect() {
		t.Fatal("Reconnect after Stop should be rejected")
	}
	if got := s.State(); got != reconnect.StateIdle {
		t.Fatalf("state mutated after Stop: %v", got)
	}
}
