package runtime

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/rewrite"
)

// LogEntry is one committed transaction that changed the graph.
type LogEntry struct {
	// Seq is the entry's 1-based position in the log. It is a logical
	// clock: no wall-clock time enters the log.
	Seq int64

	RunID     string
	Iteration int

	PreHash  string
	PostHash string

	Modifications   []rewrite.Modification
	RewritesApplied int
}

// TransactionLog is an append-only, in-memory audit log.
//
// Safe for concurrent use.
type TransactionLog struct {
	mu      sync.RWMutex
	entries []LogEntry
}

// NewTransactionLog returns an empty log.
func NewTransactionLog() *TransactionLog {
	return &TransactionLog{}
}

// Append stamps e with the next sequence number, stores it and returns the
// stamped entry.
func (l *TransactionLog) Append(e LogEntry) LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.Seq = int64(len(l.entries)) + 1
	e.Modifications = slices.Clone(e.Modifications)
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of the log in append order.
func (l *TransactionLog) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// RunEntries returns the entries of one run in append order.
func (l *TransactionLog) RunEntries(runID string) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []LogEntry
	for _, e := range l.entries {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries.
func (l *TransactionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// RunInfo describes an evaluation run as it starts.
type RunInfo struct {
	RunID   string
	RuleSet *rewrite.RuleSet
	Config  Config

	// Initial is the graph before the first pass. Together with RuleSet and
	// Config it is enough to replay the run.
	Initial graph.Snapshot
}

// LogSink persists runs and their transactions outside the process.
// Implementations must be safe for use by one evaluation at a time.
type LogSink interface {
	BeginRun(ctx context.Context, run RunInfo) error
	RecordTransaction(ctx context.Context, entry LogEntry) error
	EndRun(ctx context.Context, final EvaluationState) error
}

// HashChain returns the (pre, post) hash pairs of entries, the part of a log
// that must be identical between a run and its replay.
func HashChain(entries []LogEntry) [][2]string {
	out := make([][2]string, len(entries))
	for i, e := range entries {
		out[i] = [2]string{e.PreHash, e.PostHash}
	}
	return out
}
