// Package testutil holds graph and rule fixtures shared by tests across
// packages.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/rewrite"
)

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// App applies the global head to args: App("add", a, b) is add a b.
func App(head string, args ...ir.Expression) ir.Expression {
	return ir.Apps(ir.Var{Name: head}, args...)
}

// Ctor is the pattern head args.
func Ctor(head string, args ...ir.Pattern) ir.Pattern {
	return ir.Constructor{Name: head, Args: args}
}

// Simplifier removes wrap layers and zero additions, one layer per node per
// pass. It always goes idle.
func Simplifier() *rewrite.RuleSet {
	return rewrite.MustRuleSet("simplify",
		rewrite.Rule{
			ID:          "add-zero",
			Pattern:     Ctor("add", ir.PLit{Value: ir.IntLit(0)}, ir.PVar{Name: "x"}),
			Replacement: ir.Var{Name: "x"},
		},
		rewrite.Rule{
			ID:          "unwrap",
			Pattern:     Ctor("wrap", ir.PVar{Name: "x"}),
			Replacement: ir.Var{Name: "x"},
		},
	)
}

// Chain builds a graph with root data root and each of exprs derived from
// the one before it.
func Chain(t testing.TB, root ir.Expression, exprs ...ir.Expression) *graph.Graph {
	t.Helper()
	r, err := graph.NewRoot(root, graph.Metadata{})
	require.NoError(t, err)
	g, err := graph.New(r)
	require.NoError(t, err)
	parent := g.RootID()
	for _, e := range exprs {
		n, err := g.Derive(parent, e)
		require.NoError(t, err)
		parent = n.ID
	}
	return g
}
