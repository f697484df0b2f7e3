package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"plenum/internal/api"
	"plenum/internal/config"
	"plenum/internal/logging"
	"plenum/internal/notifications"
	"plenum/internal/status"
)

// Source is the backend surface the watcher needs: snapshot fetches plus
// the delta event stream.
type Source interface {
	status.SnapshotSource
	status.StreamSource
}

// Manager coordinates the watcher lifecycle.
type Manager struct {
	cfg        *config.Config
	source     Source
	dispatcher *notifications.Dispatcher
	logger     *slog.Logger
	sessionID  string
	lock       *flock.Flock

	tracker *status.Tracker
	poller  *status.Poller
	stream  *status.Stream
	events  chan event

	mu       sync.Mutex
	channels []api.Channel
	lastErr  error
	onChange func([]api.StatusChange)
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// event is one arrival from either source, or a poll failure. A delta that
// carries only a change list arrives as changes; the merge loop folds it
// against the tracker baseline.
type event struct {
	channels []api.Channel
	changes  []api.StatusChange
	err      error
}

// NewManager wires a watcher from application config. dispatcher may be
// nil when notifications are not wanted (one-shot CLI use).
func NewManager(cfg *config.Config, source Source, dispatcher *notifications.Dispatcher, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("watch: config required")
	}
	if source == nil {
		return nil, errors.New("watch: source required")
	}

	sessionID := uuid.NewString()
	managerLogger := logging.NewComponentLogger(logger, "watch").With(
		logging.String(logging.FieldSessionID, sessionID),
	)

	manager := &Manager{
		cfg:        cfg,
		source:     source,
		dispatcher: dispatcher,
		logger:     managerLogger,
		sessionID:  sessionID,
		tracker:    status.NewTracker(),
		events:     make(chan event, 16),
	}

	if dir := cfg.Paths.LogDir; dir != "" {
		manager.lock = flock.New(filepath.Join(dir, "watch.lock"))
	}

	pollInterval := time.Duration(cfg.Watch.PollInterval) * time.Millisecond
	retryDelay := time.Duration(cfg.Watch.StreamRetryDelay) * time.Millisecond

	manager.poller = status.NewPoller(source, pollInterval, manager.enqueueSnapshot, manager.enqueueError, logger)
	manager.stream = status.NewStream(source, retryDelay, manager.enqueueDelta, logger)

	return manager, nil
}

// SessionID returns the correlation id of this watcher run.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// OnChange registers a callback receiving every detected change batch.
// Must be called before Start.
func (m *Manager) OnChange(fn func([]api.StatusChange)) {
	m.onChange = fn
}

// Start acquires the watcher lock and launches the poller, the delta
// stream, and the merge loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("watcher already running")
	}

	if m.lock != nil {
		acquired, err := m.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire watch lock: %w", err)
		}
		if !acquired {
			return fmt.Errorf("another watcher holds %s", m.lock.Path())
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.loop(runCtx)

	if err := m.poller.Start(runCtx); err != nil {
		m.stopLocked()
		return err
	}
	if err := m.stream.Start(runCtx); err != nil {
		m.stopLocked()
		return err
	}

	m.logger.Info("watcher started",
		logging.Duration("poll_interval", time.Duration(m.cfg.Watch.PollInterval)*time.Millisecond),
	)
	return nil
}

// Stop tears everything down: sources first, then the merge loop, then the
// lock file.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.stopLocked()
	m.mu.Unlock()

	m.poller.Stop()
	m.stream.Stop()
	m.wg.Wait()
	if m.lock != nil {
		_ = m.lock.Unlock()
	}
	m.logger.Info("watcher stopped")
}

func (m *Manager) stopLocked() {
	m.running = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Refresh requests an immediate snapshot poll.
func (m *Manager) Refresh() {
	m.poller.Refresh()
}

// Channels returns the most recent reconciled channel list, sorted by code.
func (m *Manager) Channels() []api.Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]api.Channel, len(m.channels))
	copy(out, m.channels)
	return out
}

// LastError returns the most recent poll failure, nil after a successful
// poll. A non-nil value means the view may be stale, not that it is empty:
// known channels are kept through outages.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) enqueueSnapshot(channels []api.Channel) {
	m.enqueue(event{channels: channels})
}

func (m *Manager) enqueueDelta(delta api.StatusEvent) {
	if len(delta.Channels) > 0 {
		m.enqueue(event{channels: delta.Channels})
		return
	}
	if len(delta.Changes) > 0 {
		m.enqueue(event{changes: delta.Changes})
	}
}

func (m *Manager) enqueueError(err error) {
	m.enqueue(event{err: err})
}

func (m *Manager) enqueue(evt event) {
	select {
	case m.events <- evt:
	default:
		// The merge loop is stalled; drop rather than block a source
		// callback. The next poll restores a full snapshot.
		m.logger.Debug("event queue full; dropping update")
	}
}

// loop is the single consumer of both sources. Arrival order here is the
// system's only cross-source ordering, which makes the tracker's
// last-write-wins rule deterministic.
func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-m.events:
			if ctx.Err() != nil {
				return
			}
			if evt.err != nil {
				m.recordError(ctx, evt.err)
				continue
			}
			channels := evt.channels
			if len(channels) == 0 && len(evt.changes) > 0 {
				// Change-only deltas omit fields like the STT flag; fold
				// them against the baseline so patches stay field-level.
				channels = m.tracker.Fold(evt.changes)
			}
			m.apply(ctx, channels)
		}
	}
}

func (m *Manager) apply(ctx context.Context, channels []api.Channel) {
	changes := m.tracker.Apply(channels)
	snapshot := m.tracker.Channels()

	m.mu.Lock()
	m.channels = snapshot
	m.lastErr = nil
	onChange := m.onChange
	m.mu.Unlock()

	if len(changes) == 0 {
		return
	}

	for _, change := range changes {
		m.logger.Info("channel status changed",
			logging.String(logging.FieldChannel, change.Code),
			logging.String("old_status", change.OldStatus.String()),
			logging.String("new_status", change.NewStatus.String()),
			logging.String(logging.FieldEventType, "status_change"),
		)
	}

	if m.dispatcher != nil {
		m.dispatcher.HandleChanges(ctx, changes, channelNames(snapshot))
	}
	if onChange != nil {
		onChange(changes)
	}
}

func (m *Manager) recordError(ctx context.Context, err error) {
	m.mu.Lock()
	firstFailure := m.lastErr == nil
	m.lastErr = err
	m.mu.Unlock()

	if !firstFailure {
		return
	}
	m.logger.Warn("status poll failing; keeping last known state",
		logging.Error(err),
	)
	if m.dispatcher != nil {
		m.dispatcher.HandleError(ctx, err, "channel status watch")
	}
}

func channelNames(channels []api.Channel) map[string]string {
	names := make(map[string]string, len(channels))
	for _, channel := range channels {
		names[channel.Code] = channel.Name
	}
	return names
}
