package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/rewrite"
	"github.com/roach88/genesis/internal/runtime"
)

func TestStore_RecordsRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	e, st, initial := evaluateInto(t, s, "run-1")

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "simplify", run.RuleSetName)
	assert.Equal(t, runtime.StatusIdle, run.Status)
	assert.Equal(t, st.Iteration, run.Iterations)
	assert.Equal(t, st.RulesFired, run.RulesFired)
	assert.Equal(t, st.Transactions, run.Transactions)
	assert.Equal(t, st.FinalHash, run.FinalHash)
	assert.Equal(t, initial.ID(), run.SnapshotID)

	hash, err := testRuleSet().Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, run.RuleSetHash)

	entries, err := s.ReadTransactions(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, e.Log().Entries(), entries)
	assert.Equal(t, 2, len(entries))
}

func TestStore_LoadRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	e, _, initial := evaluateInto(t, s, "run-1")

	run, err := s.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, initial, run.Initial)
	assert.Equal(t, e.Config(), run.Config)

	want, err := testRuleSet().Marshal()
	require.NoError(t, err)
	got, err := run.RuleSet.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestStore_WriteSnapshotIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap, err := testGraph(t).Snapshot()
	require.NoError(t, err)

	id1, err := s.WriteSnapshot(ctx, snap)
	require.NoError(t, err)
	id2, err := s.WriteSnapshot(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	back, err := s.ReadSnapshot(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, snap, back)
	assert.Equal(t, snap.EdgeOrder(), back.EdgeOrder())
}

func TestStore_RecordTransactionIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	e, _, _ := evaluateInto(t, s, "run-1")

	entries := e.Log().Entries()
	require.NoError(t, s.RecordTransaction(ctx, entries[0]))

	stored, err := s.ReadTransactions(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, stored, len(entries))
}

func TestStore_RecordTransactionUnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.RecordTransaction(context.Background(), runtime.LogEntry{
		RunID: "ghost", Seq: 1, PreHash: "a", PostHash: "b",
		Modifications: []rewrite.Modification{},
	})
	assert.Error(t, err, "foreign keys reject transactions of unknown runs")
}

func TestStore_EndRunUnknown(t *testing.T) {
	s := createTestStore(t)
	err := s.EndRun(context.Background(), runtime.EvaluationState{RunID: "ghost", Status: runtime.StatusIdle})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_BeginRunIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap, err := testGraph(t).Snapshot()
	require.NoError(t, err)

	info := runtime.RunInfo{RunID: "r", RuleSet: testRuleSet(), Config: runtime.DefaultConfig(), Initial: snap}
	require.NoError(t, s.BeginRun(ctx, info))
	require.NoError(t, s.BeginRun(ctx, info))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runtime.StatusRunning, runs[0].Status)
}
