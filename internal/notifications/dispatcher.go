package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"plenum/internal/api"
	"plenum/internal/config"
	"plenum/internal/logging"
)

// Dispatcher converts detected status changes into user-facing alerts.
//
// Only transitions into live broadcast are alert-worthy; transitions out,
// into recess, and text-only updates pass through silently. A per-channel
// dedup window suppresses repeat alerts from flapping channels. Delivery
// failures are logged and swallowed: a missed push must never disturb the
// watcher.
type Dispatcher struct {
	service     Service
	onAir       bool
	errors      bool
	dedupWindow time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewDispatcher builds a dispatcher from application config.
func NewDispatcher(cfg *config.Config, service Service, logger *slog.Logger) *Dispatcher {
	if service == nil {
		service = noopService{}
	}
	return &Dispatcher{
		service:     service,
		onAir:       cfg.Notifications.OnAir,
		errors:      cfg.Notifications.Errors,
		dedupWindow: time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		logger:      logging.NewComponentLogger(logger, "notifier"),
		now:         time.Now,
		lastSent:    make(map[string]time.Time),
	}
}

// HandleChanges processes one batch of status changes. names maps channel
// codes to display names; a missing entry falls back to the code.
func (d *Dispatcher) HandleChanges(ctx context.Context, changes []api.StatusChange, names map[string]string) {
	if d == nil || !d.onAir {
		return
	}
	for _, change := range changes {
		if !change.WentOnAir() {
			continue
		}
		if d.suppressed(change.Code) {
			d.logger.Debug("on-air alert suppressed by dedup window",
				logging.String(logging.FieldChannel, change.Code),
			)
			continue
		}

		name := names[change.Code]
		if name == "" {
			name = change.Code
		}
		if err := d.service.NotifyChannelLive(ctx, name, change.NewText); err != nil {
			d.logger.Warn("on-air notification failed",
				logging.String(logging.FieldChannel, change.Code),
				logging.Error(err),
			)
			continue
		}
		d.markSent(change.Code)
	}
}

// HandleError reports a watcher-level error when error alerts are enabled.
func (d *Dispatcher) HandleError(ctx context.Context, err error, contextLabel string) {
	if d == nil || !d.errors || err == nil {
		return
	}
	if sendErr := d.service.NotifyWatcherError(ctx, err, contextLabel); sendErr != nil {
		d.logger.Warn("error notification failed", logging.Error(sendErr))
	}
}

func (d *Dispatcher) suppressed(code string) bool {
	if d.dedupWindow <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lastSent[code]
	return ok && d.now().Sub(last) < d.dedupWindow
}

func (d *Dispatcher) markSent(code string) {
	if d.dedupWindow <= 0 {
		return
	}
	d.mu.Lock()
	d.lastSent[code] = d.now()
	d.mu.Unlock()
}
