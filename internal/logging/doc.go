// Package logging configures structured logging for plenum.
//
// Loggers are standard log/slog instances. New builds a logger from explicit
// options; NewFromConfig derives those options from application config. The
// console format renders compact single-line output for interactive use, the
// json format emits one JSON object per line for ingestion.
//
// The attr helpers (String, Int64, Error, ...) keep call sites terse and make
// the standardized field keys (component, channel, meeting_id, session_id)
// hard to misspell.
package logging
