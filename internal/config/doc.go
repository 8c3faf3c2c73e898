// Package config loads probex settings from an optional TOML file.
//
// Values resolve in this order: built-in defaults, then the file, then
// command-line flags (applied by the caller). Durations are expressed as
// integer seconds or milliseconds so the file stays readable.
package config
