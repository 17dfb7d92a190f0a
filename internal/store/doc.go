// Package store provides SQLite-backed durable storage for evaluation runs.
//
// The store is an append-only audit log with:
//   - Snapshots: canonical graph encodings keyed by snapshot hash
//   - Runs: rule set, runtime config, initial snapshot and final state
//   - Transactions: the pre/post hash chain of each committed pass
//   - Modifications: every change a transaction made, in order
//
// A run row holds everything needed to replay it. Store implements
// runtime.LogSink, so an Engine can write to it directly.
//
// # Ordering
//
// All ordering uses seq INTEGER columns (logical clocks), never timestamps,
// and every query ends in ORDER BY seq ASC with a binary-collated tiebreak,
// so reads are identical across processes and replays.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Every JSON column holds RFC 8785 canonical JSON produced by internal/ir.
package store
