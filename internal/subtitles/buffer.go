package subtitles

import "plenum/internal/api"

// DefaultBufferSize is the number of finalized subtitles kept per meeting.
const DefaultBufferSize = 5

// Buffer holds the rolling window of finalized subtitles plus the current
// interim text. Not safe for concurrent use; the Client guards it.
type Buffer struct {
	max     int
	entries []api.Subtitle
	interim string
}

// NewBuffer returns a buffer keeping at most max finalized subtitles.
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = DefaultBufferSize
	}
	return &Buffer{max: max}
}

// ReplaceHistory resets the buffer to the most recent max entries of the
// replayed history. Input arrives oldest-first and storage keeps that order.
func (b *Buffer) ReplaceHistory(items []api.Subtitle) {
	if len(items) > b.max {
		items = items[len(items)-b.max:]
	}
	b.entries = append(b.entries[:0], items...)
}

// Append adds one finalized subtitle, evicting the oldest entry when the
// buffer is full. A finalized line supersedes any pending interim text.
func (b *Buffer) Append(item api.Subtitle) {
	if len(b.entries) == b.max {
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:b.max-1]
	}
	b.entries = append(b.entries, item)
	b.interim = ""
}

// SetInterim replaces the pending interim text. Interim text is never
// appended to the buffer and never assigned an id.
func (b *Buffer) SetInterim(text string) {
	b.interim = text
}

// Interim returns the pending interim text, empty when none.
func (b *Buffer) Interim() string {
	return b.interim
}

// Entries returns a copy of the buffer in arrival order, oldest first.
func (b *Buffer) Entries() []api.Subtitle {
	out := make([]api.Subtitle, len(b.entries))
	copy(out, b.entries)
	return out
}

// Display returns a copy in rendering order, most recent first.
func (b *Buffer) Display() []api.Subtitle {
	out := make([]api.Subtitle, len(b.entries))
	for i, entry := range b.entries {
		out[len(out)-1-i] = entry
	}
	return out
}

// Len returns the number of buffered finalized subtitles.
func (b *Buffer) Len() int {
	return len(b.entries)
}
