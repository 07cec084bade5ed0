// Package pattern provides pattern management for VibeLink Core.
//
// A pattern is a named ordered sequence of (level, duration) steps that
// the scheduler plays with wrap-around. Patterns come from two sources:
// the HTTP API (stored directly) and .vibepattern files dropped into
// the configured pattern directory.
//
// # File format
//
// Line 1 is a JSON header, every further non-blank line one step:
//
//	{"name": "Waves", "author": "dev"}
//	3-0.5s
//	6-250ms
//	0-0.25s
//
// Durations accept fractional seconds or milliseconds and are stored as
// integer milliseconds. Levels outside 0-9 are clamped, matching the
// codec's contract.
//
// # Architecture
//
// Repository (SQLite persistence) -> Registry (cached, validated CRUD)
// -> Loader (directory scan plus fsnotify watch, upserting by slug).
// The API and the scheduler only ever talk to the Registry.
package pattern
