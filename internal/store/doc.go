// Package store is the SQLite save file behind a cyberterm profile.
//
// It holds two things:
//   - Slots: keyed JSON documents (story progress, command history). Each
//     write replaces exactly one key; other keys are never touched.
//   - Events: an append-only log of what happened in each session, ordered
//     by a logical seq number shared across sessions.
//
// # Ordering
//
// Event queries order by seq ASC, id ASC COLLATE BINARY and never by wall
// time, so two runs of the same scripted session produce the same log.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
