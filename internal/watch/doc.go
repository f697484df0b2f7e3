// Package watch runs the channel status watcher: it owns the snapshot
// poller, the status delta stream, the reconciliation tracker, and the
// notification dispatcher, and merges everything into one consistent view.
//
// Both sources feed a single event loop, so batches reach the tracker in
// arrival order regardless of which source produced them. That loop is the
// only goroutine that touches the tracker; consumers read through cached
// accessors. A file lock ensures one watcher per configuration so on-air
// alerts are not delivered twice.
package watch
