// Package store provides a SQLite-backed publish journal for BAL.
//
// Libraries are loaded from JSON documents and are never written back.
// The journal is how publications survive a restart: every successful
// register appends one row, and Replay feeds the rows back through the
// engine in order after the library is loaded.
//
// # Ordering
//
//   - All reads use ORDER BY seq ASC, never timestamps
//   - seq is assigned by SQLite (INTEGER PRIMARY KEY AUTOINCREMENT)
//   - (entity, version) is UNIQUE, so a replayed publication that would
//     produce a different version tag is detected rather than duplicated
//
// # Serialization
//
// Trait data is stored as JSON with sorted keys so the same publication
// always yields the same bytes. Strings are not normalized: replay must
// restore exactly what was registered.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
