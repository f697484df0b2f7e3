// Package sse parses text/event-stream bodies into discrete events.
//
// The backend's status delta endpoint pushes JSON payloads over a standard
// server-sent-events response; this package handles only the framing, the
// caller decodes each event's data.
package sse
