// Package repositories implements SQLite persistence for domain entities.
//
// Key Implementations:
//   - [AttemptRepository] : login attempt history, newest first
//
// Sequence numbers provide stable, human-readable ordering (attempt #42) independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
