// Package meetingcache persists meeting metadata to a local SQLite
// database so listings keep working while the backend is unreachable.
//
// The cache stores metadata only. Subtitle text is never written to disk;
// it lives in the in-memory rolling buffer for the duration of a session.
package meetingcache
