package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"plenum/internal/api"
	"plenum/internal/logging"
	"plenum/internal/sse"
)

// StreamSource opens the status delta event stream.
type StreamSource interface {
	StatusStream(ctx context.Context) (io.ReadCloser, error)
}

// Stream consumes the server-sent status delta stream. Each event's data is
// a JSON StatusEvent; malformed payloads are dropped silently because the
// poller backstops correctness. A dropped connection is re-established after
// a fixed delay for as long as the stream is running.
type Stream struct {
	source     StreamSource
	retryDelay time.Duration
	onEvent    func(api.StatusEvent)
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewStream builds a delta stream consumer. onEvent receives every
// well-formed event.
func NewStream(source StreamSource, retryDelay time.Duration, onEvent func(api.StatusEvent), logger *slog.Logger) *Stream {
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}
	return &Stream{
		source:     source,
		retryDelay: retryDelay,
		onEvent:    onEvent,
		logger:     logging.NewComponentLogger(logger, "status-stream"),
	}
}

// Start launches the stream loop.
func (s *Stream) Start(ctx context.Context) error {
	if s == nil || s.source == nil {
		return errors.New("status stream unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("status stream already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.ctx = runCtx
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop tears the stream down and waits for the reader to exit. Cancelling
// the run context unblocks the in-flight body read and releases the
// connection.
func (s *Stream) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Stream) loop() {
	defer s.wg.Done()

	for {
		if s.ctx.Err() != nil {
			return
		}

		s.consume()

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}

// consume opens the stream and dispatches events until it ends.
func (s *Stream) consume() {
	body, err := s.source.StatusStream(s.ctx)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Debug("status stream connect failed; will retry",
				logging.Error(err),
				logging.Duration("delay", s.retryDelay),
			)
		}
		return
	}
	defer body.Close()

	s.logger.Debug("status stream connected")

	scanner := sse.NewScanner(body)
	for scanner.Next() {
		var event api.StatusEvent
		if err := json.Unmarshal([]byte(scanner.Event().Data), &event); err != nil {
			// Best-effort channel: drop the frame, the poller corrects.
			s.logger.Debug("dropping malformed status event", logging.Error(err))
			continue
		}
		if s.ctx.Err() != nil {
			return
		}
		if s.onEvent != nil {
			s.onEvent(event)
		}
	}

	if err := scanner.Err(); err != nil && s.ctx.Err() == nil {
		s.logger.Debug("status stream ended", logging.Error(err))
	}
}
