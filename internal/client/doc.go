// Package client implements the HTTP client for the plenum backend API.
//
// All methods take a context and return typed values or an error; non-2xx
// responses surface as *StatusError, network-level failures wrap the
// transport error and can be classified with IsUnavailable. The client never
// retries; polling cadence and stream re-establishment are owned by the
// status and subtitles packages.
package client
