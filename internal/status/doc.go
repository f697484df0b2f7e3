// Package status tracks broadcast channel state from two independent
// sources: a periodic snapshot poll and a server-sent delta stream.
//
// The Tracker is the single authority for per-channel state. Both sources
// feed it batches of channels in arrival order; the tracker detects
// transitions against its baseline and reports them once per batch. Neither
// source carries sequence numbers, so consistency is last-write-wins by
// arrival — the poller is the correctness backstop when stream events are
// lost or malformed.
package status
