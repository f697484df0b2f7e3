package status

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"plenum/internal/api"
	"plenum/internal/logging"
)

// SnapshotSource fetches one full channel status snapshot.
type SnapshotSource interface {
	ChannelStatus(ctx context.Context) ([]api.Channel, error)
}

// Poller pulls channel snapshots on a fixed interval and forwards them to
// its callbacks. A failed poll surfaces through onError and is dropped;
// there is no retry beyond the next scheduled tick, and known channel state
// is never cleared by a failure.
type Poller struct {
	source     SnapshotSource
	interval   time.Duration
	onSnapshot func([]api.Channel)
	onError    func(error)
	logger     *slog.Logger

	refresh chan struct{}

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPoller builds a poller. onSnapshot receives every successful fetch;
// onError receives every failure. Either callback may be nil.
func NewPoller(source SnapshotSource, interval time.Duration, onSnapshot func([]api.Channel), onError func(error), logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		source:     source,
		interval:   interval,
		onSnapshot: onSnapshot,
		onError:    onError,
		logger:     logging.NewComponentLogger(logger, "status-poller"),
		refresh:    make(chan struct{}, 1),
	}
}

// Start launches the poll loop. The first fetch happens immediately.
func (p *Poller) Start(ctx context.Context) error {
	if p == nil || p.source == nil {
		return errors.New("status poller unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("status poller already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.ctx = runCtx
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go p.loop()
	return nil
}

// Stop halts the loop and waits for the in-flight poll to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Refresh requests an immediate out-of-band poll (focus regain, manual
// trigger). Coalesces when a refresh is already pending.
func (p *Poller) Refresh() {
	if p == nil {
		return
	}
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

func (p *Poller) loop() {
	defer p.wg.Done()

	p.poll()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		case <-p.refresh:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	ctx := p.ctx
	if ctx == nil || ctx.Err() != nil {
		return
	}

	channels, err := p.source.ChannelStatus(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Debug("snapshot poll failed; next tick will retry",
			logging.Error(err),
		)
		if p.onError != nil {
			p.onError(err)
		}
		return
	}

	if p.onSnapshot != nil {
		p.onSnapshot(channels)
	}
}
