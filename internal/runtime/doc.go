// Package runtime drives rule sets over a graph until it stops changing.
//
// Each iteration of Evaluate scans an immutable view of the graph for
// candidate rewrites, sorts them by (rule priority desc, node id asc, rule id
// asc) and hands them to the rewrite layer as one transaction. The scan may
// run in parallel; the sort is what fixes application order, so parallel and
// sequential evaluation produce identical logs.
//
// Evaluation stops in one of three terminal states:
//   - Idle: a pass left the graph hash unchanged
//   - TimedOut: the configured wall-clock budget elapsed
//   - MaxIterationsReached: the iteration cap was hit
//
// None of these is a failure. Whatever was last committed stays committed,
// and a transaction that has started always runs to commit or rollback.
//
// Every committed, non-empty transaction is appended to the engine's
// TransactionLog and, when configured, to a durable LogSink. Entries carry a
// logical sequence number, never a wall-clock time.
package runtime
