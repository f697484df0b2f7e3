// Package config loads and validates plenum's TOML configuration.
//
// Load resolves the config path (explicit flag, then
// ~/.config/plenum/config.toml, then ./plenum.toml), overlays the file on
// repository defaults, expands ~ in path values, and validates the result.
// A missing file is not an error: the defaults are usable against a local
// backend out of the box.
package config
