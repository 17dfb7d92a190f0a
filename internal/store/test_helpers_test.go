package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/rewrite"
	"github.com/roach88/genesis/internal/runtime"
	"github.com/roach88/genesis/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var app = testutil.App

// testRuleSet unwraps wrap x and drops add 0 x.
func testRuleSet() *rewrite.RuleSet {
	return rewrite.MustRuleSet("simplify",
		rewrite.Rule{
			ID:          "unwrap",
			Pattern:     ir.Constructor{Name: "wrap", Args: []ir.Pattern{ir.PVar{Name: "x"}}},
			Replacement: ir.Var{Name: "x"},
		},
		rewrite.Rule{
			ID:          "add-zero",
			Priority:    1,
			Pattern:     ir.Constructor{Name: "add", Args: []ir.Pattern{ir.PLit{Value: ir.IntLit(0)}, ir.PVar{Name: "x"}}},
			Replacement: ir.Var{Name: "x"},
		},
	)
}

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	root, err := graph.NewRoot(ir.Str("root"), graph.Metadata{Tags: []string{"root"}})
	require.NoError(t, err)
	g, err := graph.New(root)
	require.NoError(t, err)
	a, err := g.Derive(g.RootID(), app("wrap", app("wrap", ir.Int(1))))
	require.NoError(t, err)
	b, err := g.Derive(a.ID, app("add", ir.Int(0), ir.Str("b")), "leaf")
	require.NoError(t, err)
	_, err = g.Derive(g.RootID(), app("keep", ir.Int(2)))
	require.NoError(t, err)
	require.NoError(t, g.Link(g.RootID(), b.ID, graph.Dependency))
	return g
}

// evaluateInto runs the test rule set over the test graph with s as the
// log sink.
func evaluateInto(t *testing.T, s *Store, runID string) (*runtime.Engine, runtime.EvaluationState, graph.Snapshot) {
	t.Helper()
	g := testGraph(t)
	initial, err := g.Snapshot()
	require.NoError(t, err)

	e, err := runtime.New(runtime.DefaultConfig(),
		runtime.WithLogger(testutil.QuietLogger()),
		runtime.WithRunIDGenerator(runtime.NewFixedGenerator(runID)),
		runtime.WithLogSink(s),
	)
	require.NoError(t, err)
	st, err := e.Evaluate(context.Background(), g, testRuleSet())
	require.NoError(t, err)
	return e, st, initial
}
