package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)
	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	_, err = s.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_OrderedByBegin(t *testing.T) {
	s := createTestStore(t)
	// ids deliberately sort opposite to begin order
	evaluateInto(t, s, "zeta")
	evaluateInto(t, s, "alpha")

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "zeta", runs[0].RunID)
	assert.Equal(t, "alpha", runs[1].RunID)
	assert.Less(t, runs[0].Seq, runs[1].Seq)

	latest, err := s.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alpha", latest.RunID)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = s.LoadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestReadSnapshot_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadSnapshot(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestReadSnapshot_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap, err := testGraph(t).Snapshot()
	require.NoError(t, err)
	id, err := s.WriteSnapshot(ctx, snap)
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, `UPDATE snapshots SET graph_hash = 'bogus' WHERE id = ?`, id)
	require.NoError(t, err)

	_, err = s.ReadSnapshot(ctx, id)
	assert.Error(t, err)
}

func TestReadTransactions_Empty(t *testing.T) {
	s := createTestStore(t)
	entries, err := s.ReadTransactions(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestReadTransactions_DecodesModifications(t *testing.T) {
	s := createTestStore(t)
	evaluateInto(t, s, "run-1")

	entries, err := s.ReadTransactions(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.NotEmpty(t, e.Modifications)
		for _, m := range e.Modifications {
			assert.Equal(t, "node_updated", string(m.Kind()))
		}
	}
}
