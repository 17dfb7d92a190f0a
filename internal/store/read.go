package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/rewrite"
	"github.com/roach88/genesis/internal/runtime"
)

var (
	// ErrRunNotFound is returned for an unknown run id.
	ErrRunNotFound = errors.New("run not found")

	// ErrSnapshotNotFound is returned for an unknown snapshot id.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// RunRecord is the stored summary of a run.
type RunRecord struct {
	Seq          int64
	RunID        string
	RuleSetName  string
	RuleSetHash  string
	SnapshotID   string
	Status       runtime.Status
	Iterations   int
	RulesFired   int
	Transactions int
	FinalHash    string
}

const runColumns = `seq, run_id, ruleset_name, ruleset_hash, snapshot_id, status,
	iterations, rules_fired, transactions, final_hash`

// ListRuns returns every run in the order they were begun.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, run_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run's summary.
func (s *Store) ReadRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE run_id = ?
	`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("read run %s: %w", runID, ErrRunNotFound)
	}
	return r, err
}

// LatestRun returns the most recently begun run.
func (s *Store) LatestRun(ctx context.Context) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq DESC
		LIMIT 1
	`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var r RunRecord
	var status string
	err := row.Scan(&r.Seq, &r.RunID, &r.RuleSetName, &r.RuleSetHash, &r.SnapshotID, &status,
		&r.Iterations, &r.RulesFired, &r.Transactions, &r.FinalHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	r.Status = runtime.Status(status)
	return r, nil
}

// LoadRun returns everything needed to replay a run: its rule set, config
// and initial snapshot.
func (s *Store) LoadRun(ctx context.Context, runID string) (runtime.RunInfo, error) {
	var rsData, cfgData, snapID string
	err := s.db.QueryRowContext(ctx, `
		SELECT ruleset, config, snapshot_id FROM runs WHERE run_id = ?
	`, runID).Scan(&rsData, &cfgData, &snapID)
	if errors.Is(err, sql.ErrNoRows) {
		return runtime.RunInfo{}, fmt.Errorf("load run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return runtime.RunInfo{}, fmt.Errorf("load run %s: %w", runID, err)
	}

	rs, err := rewrite.UnmarshalRuleSet([]byte(rsData))
	if err != nil {
		return runtime.RunInfo{}, fmt.Errorf("load run %s: rule set: %w", runID, err)
	}
	cfg, err := unmarshalConfig(cfgData)
	if err != nil {
		return runtime.RunInfo{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	snap, err := s.ReadSnapshot(ctx, snapID)
	if err != nil {
		return runtime.RunInfo{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	return runtime.RunInfo{RunID: runID, RuleSet: rs, Config: cfg, Initial: snap}, nil
}

// ReadSnapshot returns a stored snapshot. The stored graph hash is checked
// against the data.
func (s *Store) ReadSnapshot(ctx context.Context, id string) (graph.Snapshot, error) {
	var hash, data, order string
	err := s.db.QueryRowContext(ctx, `
		SELECT graph_hash, data, edge_order FROM snapshots WHERE id = ?
	`, id).Scan(&hash, &data, &order)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Snapshot{}, fmt.Errorf("read snapshot %s: %w", id, ErrSnapshotNotFound)
	}
	if err != nil {
		return graph.Snapshot{}, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	edges, err := unmarshalEdges(order)
	if err != nil {
		return graph.Snapshot{}, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	snap := graph.NewSnapshot([]byte(data), edges)
	if snap.Hash != hash {
		return graph.Snapshot{}, fmt.Errorf("read snapshot %s: stored hash %s does not match data", id, hash)
	}
	return snap, nil
}

// ReadTransactions returns a run's transactions with their modifications,
// in log order.
//
// Returns an empty slice (not nil) if the run committed nothing.
func (s *Store) ReadTransactions(ctx context.Context, runID string) ([]runtime.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, iteration, pre_hash, post_hash, rewrites_applied
		FROM transactions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	entries := []runtime.LogEntry{}
	for rows.Next() {
		e := runtime.LogEntry{RunID: runID}
		if err := rows.Scan(&e.Seq, &e.Iteration, &e.PreHash, &e.PostHash, &e.RewritesApplied); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	// rows must be closed before the next query on the single connection
	rows.Close()

	for i := range entries {
		mods, err := s.readModifications(ctx, runID, entries[i].Seq)
		if err != nil {
			return nil, err
		}
		entries[i].Modifications = mods
	}
	return entries, nil
}

func (s *Store) readModifications(ctx context.Context, runID string, seq int64) ([]rewrite.Modification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM modifications
		WHERE run_id = ? AND seq = ?
		ORDER BY idx ASC
	`, runID, seq)
	if err != nil {
		return nil, fmt.Errorf("query modifications: %w", err)
	}
	defer rows.Close()

	var mods []rewrite.Modification
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan modification: %w", err)
		}
		v, err := ir.UnmarshalIRValue([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("modification %s/%d: %w", runID, seq, err)
		}
		m, err := rewrite.DecodeModification(v)
		if err != nil {
			return nil, fmt.Errorf("modification %s/%d: %w", runID, seq, err)
		}
		mods = append(mods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modifications: %w", err)
	}
	return mods, nil
}
