package status

import (
	"sort"

	"plenum/internal/api"
)

// Tracker reconciles channel batches from the poller and the delta stream
// into one baseline and detects status transitions.
//
// Tracker is not safe for concurrent use; the watcher's event loop is its
// single owner.
type Tracker struct {
	baseline map[string]api.Channel
	onChange func([]api.StatusChange)
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{baseline: make(map[string]api.Channel)}
}

// OnChange registers the batch change callback. It is invoked at most once
// per Apply, with every change detected in that batch.
func (t *Tracker) OnChange(fn func([]api.StatusChange)) {
	t.onChange = fn
}

// Apply merges one incoming batch. For every channel it compares the new
// status to the baseline, records a StatusChange when a previously known
// status differs, and updates the baseline unconditionally so name and
// status text stay fresh even without a transition.
//
// The first observation of a code never produces a change: only transitions
// are reportable, not initial existence.
func (t *Tracker) Apply(channels []api.Channel) []api.StatusChange {
	var changes []api.StatusChange
	for _, incoming := range channels {
		previous, known := t.baseline[incoming.Code]
		if known && incoming.Name == "" {
			// Deltas may omit display names; keep the known one.
			incoming.Name = previous.Name
		}
		if known && previous.LiveStatus != incoming.LiveStatus {
			changes = append(changes, api.StatusChange{
				Code:      incoming.Code,
				OldStatus: previous.LiveStatus,
				NewStatus: incoming.LiveStatus,
				OldText:   previous.StatusText,
				NewText:   incoming.StatusText,
			})
		}
		t.baseline[incoming.Code] = incoming
	}

	if len(changes) > 0 && t.onChange != nil {
		// One callback per batch; per-change callbacks would storm the
		// notifier when several channels flip in the same tick.
		t.onChange(changes)
	}
	return changes
}

// Fold expands status-only updates into full channel values against the
// baseline, so fields a change record cannot carry (display name, the STT
// flag) survive the patch. Unknown codes yield minimal entries; the next
// snapshot completes them.
func (t *Tracker) Fold(changes []api.StatusChange) []api.Channel {
	channels := make([]api.Channel, 0, len(changes))
	for _, change := range changes {
		channel, known := t.baseline[change.Code]
		if !known {
			channel = api.Channel{Code: change.Code}
		}
		channel.LiveStatus = change.NewStatus
		channel.StatusText = change.NewText
		channels = append(channels, channel)
	}
	return channels
}

// Channels returns the current baseline sorted by code.
func (t *Tracker) Channels() []api.Channel {
	channels := make([]api.Channel, 0, len(t.baseline))
	for _, channel := range t.baseline {
		channels = append(channels, channel)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Code < channels[j].Code })
	return channels
}

// Len returns the number of known channels.
func (t *Tracker) Len() int {
	return len(t.baseline)
}
