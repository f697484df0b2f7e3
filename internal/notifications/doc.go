// Package notifications delivers watcher events via ntfy push messages.
//
// NewService returns an ntfy-backed implementation when a topic is
// configured and a no-op otherwise; an unconfigured topic is the normal
// state, not an error. The Dispatcher sits between the status tracker and
// the Service: it forwards only transitions into live broadcast, applies
// the per-channel dedup window, and treats delivery failures as log lines
// rather than errors.
package notifications
