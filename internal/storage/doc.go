// Package storage persists the settings audit trail.
//
// Drivers:
//   - "file": JSON Lines file, pruned by rewrite-and-rename
//   - "sqlite": SQLite database via modernc.org/sqlite (pure Go)
//
// Session state is never stored here; only the history of changes to it.
package storage
