package api

import (
	"encoding/json"
	"time"
)

// Subtitle is one finalized subtitle line. Immutable once created; identified
// by ID. Interim (partial) recognition text is not a Subtitle and never
// receives an ID.
type Subtitle struct {
	ID         int64     `json:"id"`
	MeetingID  int64     `json:"meeting_id"`
	StartTime  float64   `json:"start_time"`
	EndTime    float64   `json:"end_time"`
	Text       string    `json:"text"`
	Speaker    string    `json:"speaker,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Subtitle stream event types carried in the WebSocket envelope.
const (
	SubtitleEventHistory = "subtitle_history"
	SubtitleEventCreated = "subtitle_created"
	SubtitleEventInterim = "subtitle_interim"
)

// SubtitleEvent is the message envelope on /ws/meetings/{id}/subtitles.
// Payload decoding is deferred until the type discriminator is known.
type SubtitleEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubtitleHistoryPayload carries the replayed tail of a meeting's subtitles,
// oldest first.
type SubtitleHistoryPayload struct {
	Subtitles []Subtitle `json:"subtitles"`
}

// SubtitleInterimPayload carries transient partial recognition text.
type SubtitleInterimPayload struct {
	Text string `json:"text"`
}
