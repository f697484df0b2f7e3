package api

// LiveStatus enumerates the broadcast states a channel can report.
type LiveStatus int

const (
	// StatusPreBroadcast means the channel has a scheduled session that has
	// not started yet.
	StatusPreBroadcast LiveStatus = 0
	// StatusOnAir means the channel is broadcasting live.
	StatusOnAir LiveStatus = 1
	// StatusRecess means the session is suspended and expected to resume.
	StatusRecess LiveStatus = 2
	// StatusEnded means the session finished.
	StatusEnded LiveStatus = 3
	// StatusNoLiveChannel means no live session exists for the channel.
	StatusNoLiveChannel LiveStatus = 4
)

// String returns a short human-readable label for table output and logs.
func (s LiveStatus) String() string {
	switch s {
	case StatusPreBroadcast:
		return "pre-broadcast"
	case StatusOnAir:
		return "on-air"
	case StatusRecess:
		return "recess"
	case StatusEnded:
		return "ended"
	case StatusNoLiveChannel:
		return "no-live"
	default:
		return "unknown"
	}
}

// Channel is one broadcast channel as reported by the status snapshot and
// the status delta stream. A snapshot replaces the value wholesale; deltas
// carry the same shape.
type Channel struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	LiveStatus LiveStatus `json:"livestatus"`
	StatusText string     `json:"status_text,omitempty"`
	STTRunning bool       `json:"stt_running"`
}

// StatusChange records a single observed channel transition. Changes are
// ephemeral: they are handed to the change callback and the notifier once
// and never persisted.
type StatusChange struct {
	Code      string     `json:"code"`
	OldStatus LiveStatus `json:"old_status"`
	NewStatus LiveStatus `json:"new_status"`
	OldText   string     `json:"old_text,omitempty"`
	NewText   string     `json:"new_text,omitempty"`
}

// WentOnAir reports whether the change is a transition into live broadcast.
// Only these transitions are notification-worthy.
func (c StatusChange) WentOnAir() bool {
	return c.NewStatus == StatusOnAir && c.OldStatus != StatusOnAir
}

// StatusEvent is the payload carried by one status delta stream event.
type StatusEvent struct {
	Channels []Channel      `json:"channels"`
	Changes  []StatusChange `json:"changes"`
}
