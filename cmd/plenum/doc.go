// Package main hosts the plenum CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the long-running watch daemon, one-shot
// channel and meeting queries, live subtitle tailing, full-text search, and
// configuration scaffolding. It centralizes configuration resolution and
// backend client construction so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
