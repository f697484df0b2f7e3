// Package api defines the wire data types shared between the REST client,
// the status stream, and the subtitle stream.
//
// These structs mirror the backend's JSON payloads exactly. They carry no
// behavior beyond enum formatting; all reconciliation and buffering logic
// lives in the packages that consume them (status, subtitles, watch).
package api
