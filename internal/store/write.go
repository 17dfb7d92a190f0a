package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/rewrite"
	"github.com/roach88/genesis/internal/runtime"
)

var _ runtime.LogSink = (*Store)(nil)

// WriteSnapshot stores a graph snapshot and returns its id.
// Uses ON CONFLICT(id) DO NOTHING: snapshots are content-addressed, so a
// duplicate write stores the same bytes.
func (s *Store) WriteSnapshot(ctx context.Context, snap graph.Snapshot) (string, error) {
	return writeSnapshot(ctx, s.db, snap)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeSnapshot(ctx context.Context, db execer, snap graph.Snapshot) (string, error) {
	order, err := marshalEdges(snap.EdgeOrder())
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	id := snap.ID()
	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (id, graph_hash, data, edge_order)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, snap.Hash, string(snap.Data), order)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return id, nil
}

// BeginRun records a run and its initial snapshot. Writing the same run id
// twice is a no-op.
func (s *Store) BeginRun(ctx context.Context, run runtime.RunInfo) error {
	rsData, err := run.RuleSet.Marshal()
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	rsHash, err := run.RuleSet.Hash()
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	cfg, err := marshalConfig(run.Config)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	snapID, err := writeSnapshot(ctx, tx, run.Initial)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, ruleset_name, ruleset_hash, ruleset, config, snapshot_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, run.RunID, run.RuleSet.Name(), rsHash, string(rsData), cfg, snapID)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("begin run: commit: %w", err)
	}
	return nil
}

// RecordTransaction appends a committed transaction and its modifications.
// The run must exist. Recording the same (run, seq) twice is a no-op.
func (s *Store) RecordTransaction(ctx context.Context, e runtime.LogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record transaction: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (run_id, seq, iteration, pre_hash, post_hash, rewrites_applied)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, e.RunID, e.Seq, e.Iteration, e.PreHash, e.PostHash, e.RewritesApplied)
	if err != nil {
		return fmt.Errorf("record transaction %s/%d: %w", e.RunID, e.Seq, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record transaction: rows affected: %w", err)
	}
	if n == 0 {
		return nil
	}

	for i, m := range e.Modifications {
		obj, err := rewrite.EncodeModification(m)
		if err != nil {
			return fmt.Errorf("record transaction %s/%d: modification %d: %w", e.RunID, e.Seq, i, err)
		}
		data, err := canonicalText(obj)
		if err != nil {
			return fmt.Errorf("record transaction %s/%d: modification %d: %w", e.RunID, e.Seq, i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO modifications (run_id, seq, idx, kind, data)
			VALUES (?, ?, ?, ?, ?)
		`, e.RunID, e.Seq, i, string(m.Kind()), data)
		if err != nil {
			return fmt.Errorf("record transaction %s/%d: modification %d: %w", e.RunID, e.Seq, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record transaction: commit: %w", err)
	}
	return nil
}

// EndRun stores the final state of a run.
func (s *Store) EndRun(ctx context.Context, st runtime.EvaluationState) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, iterations = ?, rules_fired = ?, transactions = ?, final_hash = ?
		WHERE run_id = ?
	`, string(st.Status), st.Iteration, st.RulesFired, st.Transactions, st.FinalHash, st.RunID)
	if err != nil {
		return fmt.Errorf("end run %s: %w", st.RunID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end run %s: rows affected: %w", st.RunID, err)
	}
	if n == 0 {
		return fmt.Errorf("end run %s: %w", st.RunID, ErrRunNotFound)
	}
	return nil
}
