package runtime

import (
	"context"
	"fmt"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/rewrite"
)

// ReplayReport compares a recorded run with a fresh evaluation of the same
// initial graph, rules and configuration.
type ReplayReport struct {
	// Match is true when both hash chains and final hashes are identical.
	Match bool

	// Divergence is the index of the first differing entry, or -1. A
	// final hash mismatch after identical chains diverges at len(Recorded).
	Divergence int

	// RecordedFinal is the post-hash of the last recorded entry, or the
	// initial graph hash when nothing was recorded.
	RecordedFinal string

	Recorded []LogEntry
	Replayed []LogEntry

	State EvaluationState
}

// Replay re-runs an evaluation from initial and checks that it commits the
// same transactions as recorded. The timeout of cfg is ignored: a replay
// that times out early is not comparable.
//
// opts configure the replay engine; WithLogSink is honoured but rarely
// wanted.
func Replay(ctx context.Context, initial graph.Snapshot, rs *rewrite.RuleSet, cfg Config, recorded []LogEntry, opts ...EngineOption) (*ReplayReport, error) {
	g, err := graph.DecodeSnapshot(initial)
	if err != nil {
		return nil, fmt.Errorf("decode initial snapshot: %w", err)
	}
	initialHash, err := g.CanonicalHash()
	if err != nil {
		return nil, err
	}
	cfg.Timeout = 0
	e, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	st, err := e.Evaluate(ctx, g, rs)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	report := &ReplayReport{
		Recorded:      recorded,
		Replayed:      e.Log().RunEntries(st.RunID),
		RecordedFinal: finalOf(recorded, initialHash),
		State:         st,
	}
	report.Divergence = diverges(HashChain(report.Recorded), HashChain(report.Replayed))
	if report.Divergence < 0 && report.RecordedFinal != st.FinalHash {
		report.Divergence = len(recorded)
	}
	report.Match = report.Divergence < 0
	return report, nil
}

// finalOf is the hash a recorded run ended on.
func finalOf(entries []LogEntry, initial string) string {
	if len(entries) == 0 {
		return initial
	}
	return entries[len(entries)-1].PostHash
}

// diverges returns the first index at which a and b differ, or -1. A chain
// that is a strict prefix of the other differs at its length.
func diverges(a, b [][2]string) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
