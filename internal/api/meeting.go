package api

import "time"

// Meeting is one recorded or live assembly session.
type Meeting struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Committee   string     `json:"committee,omitempty"`
	ChannelCode string     `json:"channel_code,omitempty"`
	Status      string     `json:"status"`
	VideoURL    string     `json:"video_url,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// MeetingList is the envelope returned by the meeting listing endpoints.
type MeetingList struct {
	Meetings []Meeting `json:"meetings"`
	Total    int       `json:"total"`
}

// CreateMeetingRequest is the body for POST /api/meetings.
type CreateMeetingRequest struct {
	Title       string `json:"title"`
	Committee   string `json:"committee,omitempty"`
	ChannelCode string `json:"channel_code,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
}

// CreateMeetingFromURLRequest is the body for POST /api/meetings/from-url.
type CreateMeetingFromURLRequest struct {
	URL string `json:"url"`
}

// SearchResult is one subtitle hit returned by GET /api/search.
type SearchResult struct {
	MeetingID    int64     `json:"meeting_id"`
	MeetingTitle string    `json:"meeting_title"`
	SubtitleID   int64     `json:"subtitle_id"`
	Text         string    `json:"text"`
	Speaker      string    `json:"speaker,omitempty"`
	StartTime    float64   `json:"start_time"`
	CreatedAt    time.Time `json:"created_at"`
}

// SearchResponse is the envelope returned by GET /api/search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}
