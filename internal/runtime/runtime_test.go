package runtime

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/rewrite"
	"github.com/roach88/genesis/internal/testutil"
)

var (
	app        = testutil.App
	ctor       = testutil.Ctor
	simplifier = testutil.Simplifier
)

func pv(name string) ir.Pattern { return ir.PVar{Name: name} }

// ticker rewrites tick x to tick (s x) forever.
func ticker() *rewrite.RuleSet {
	return rewrite.MustRuleSet("ticker", rewrite.Rule{
		ID:          "tick",
		Pattern:     ctor("tick", pv("x")),
		Replacement: app("tick", app("s", ir.Var{Name: "x"})),
		Globals:     []string{"tick", "s"},
	})
}

// fixture builds a graph whose simplification takes three changing passes.
func fixture(t *testing.T) *graph.Graph {
	t.Helper()
	exprs := []ir.Expression{
		app("wrap", app("wrap", app("wrap", ir.Int(1)))),
		app("add", ir.Int(0), app("wrap", ir.Int(2))),
		app("add", ir.Int(0), ir.Int(3)),
		app("keep", ir.Int(4)),
		ir.Str("plain"),
	}
	for i := range 8 {
		exprs = append(exprs, app("wrap", ir.Str(fmt.Sprintf("leaf-%d", i))))
	}
	return testutil.Chain(t, ir.Str("root"), exprs...)
}

func tickGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := fixture(t)
	_, err := g.Derive(g.RootID(), app("tick", ir.Int(0)))
	require.NoError(t, err)
	return g
}

func newEngine(t *testing.T, cfg Config, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{
		WithLogger(testutil.QuietLogger()),
		WithRunIDGenerator(NewFixedGenerator("run-1", "run-2", "run-3")),
	}, opts...)
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	return e
}

// recordingSink keeps everything an engine reports.
type recordingSink struct {
	mu      sync.Mutex
	runs    []RunInfo
	entries []LogEntry
	final   []EvaluationState
	failOn  string
}

func (s *recordingSink) BeginRun(_ context.Context, run RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "begin" {
		return fmt.Errorf("sink unavailable")
	}
	s.runs = append(s.runs, run)
	return nil
}

func (s *recordingSink) RecordTransaction(_ context.Context, e LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == "record" {
		return fmt.Errorf("sink full")
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *recordingSink) EndRun(_ context.Context, st EvaluationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.final = append(s.final, st)
	return nil
}
