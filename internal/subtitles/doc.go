// Package subtitles streams live subtitles for one meeting over WebSocket.
//
// The backend pushes three event kinds on /ws/meetings/{id}/subtitles: a
// history replay on connect, finalized subtitle lines, and interim partial
// recognition text. The Client keeps a small rolling buffer of finalized
// lines plus the single current interim value; a reconnect supervisor
// re-dials a dropped stream after a fixed delay.
//
// Storage order in the buffer is arrival order (and eviction is FIFO);
// Display returns most-recent-first for rendering. These are independent
// concerns and deliberately not the same slice direction.
package subtitles
