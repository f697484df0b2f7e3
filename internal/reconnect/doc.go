// Package reconnect supervises the lifecycle of long-lived stream
// connections: idle, connecting, open, closed, and back to connecting after
// a fixed delay. There is no backoff growth; the backend is local-ish and a
// steady retry cadence keeps status latency predictable.
package reconnect
