// Package history persists one row per rip run and one row per track outcome
// in a SQLite database, so past runs can be listed and inspected after the
// fact.
package history
