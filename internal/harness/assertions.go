package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/rewrite"
	"github.com/roach88/genesis/internal/runtime"
)

// EvaluateAssertions checks every assertion against result and returns one
// message per failure.
func (h *Harness) EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.evaluateAssertion(ctx, result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func (h *Harness) evaluateAssertion(ctx context.Context, result *Result, a Assertion) error {
	switch a.Type {
	case AssertNodeEquals:
		return h.assertNodeEquals(a)
	case AssertNodeUnchanged:
		return assertNodeUnchanged(result, a.Node)
	case AssertTransactionCount:
		if got := len(result.Trace); got != a.Count {
			return fmt.Errorf("expected %d transactions, got %d", a.Count, got)
		}
		return nil
	case AssertReplayMatches:
		return h.assertReplayMatches(ctx, result.State)
	case AssertParallelEquivalent:
		return h.assertParallelEquivalent(ctx, result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func (h *Harness) assertNodeEquals(a Assertion) error {
	want, err := decodeTerm(a.Data)
	if err != nil {
		return fmt.Errorf("expected data: %w", err)
	}
	id, ok := h.ids[a.Node]
	if !ok {
		return fmt.Errorf("node %q not in graph", a.Node)
	}
	n, ok := h.graph.Node(id)
	if !ok {
		return fmt.Errorf("node %q was removed", a.Node)
	}
	if !ir.Equal(want, n.Data) {
		return fmt.Errorf("node %q: expected %s, got %s", a.Node, ir.Format(want), ir.Format(n.Data))
	}
	return nil
}

func assertNodeUnchanged(result *Result, name string) error {
	for _, ev := range result.Trace {
		for _, c := range ev.Changes {
			if c.Node == name && c.Kind == string(rewrite.KindNodeUpdated) {
				return fmt.Errorf("node %q rewritten in iteration %d: %s => %s", name, ev.Iteration, c.Before, c.After)
			}
		}
	}
	return nil
}

// assertReplayMatches replays the stored run and compares hash chains.
func (h *Harness) assertReplayMatches(ctx context.Context, state runtime.EvaluationState) error {
	report, err := h.store.ReplayRun(ctx, state.RunID,
		runtime.WithLogger(h.logger),
		runtime.WithRunIDGenerator(runtime.NewFixedGenerator("replay-"+h.scenario.Name)),
	)
	if err != nil {
		return err
	}
	if !report.Match {
		return fmt.Errorf("replay diverged at transaction %d", report.Divergence)
	}
	if report.State.FinalHash != state.FinalHash {
		return fmt.Errorf("replay ended at %s, run ended at %s", report.State.FinalHash, state.FinalHash)
	}
	return nil
}

// assertParallelEquivalent evaluates the initial graph again with a
// parallel scan and expects the same transactions and final state.
func (h *Harness) assertParallelEquivalent(ctx context.Context, result *Result) error {
	g, err := graph.DecodeSnapshot(h.initial)
	if err != nil {
		return err
	}
	cfg := h.scenario.Config.Runtime()
	cfg.Parallel = true
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	eng, err := h.engine(cfg)
	if err != nil {
		return err
	}
	state, err := eng.Evaluate(ctx, g, h.rules)
	if err != nil {
		return fmt.Errorf("parallel evaluation: %w", err)
	}

	if state.FinalHash != result.State.FinalHash {
		return fmt.Errorf("parallel run ended at %s, sequential at %s", state.FinalHash, result.State.FinalHash)
	}
	if state.Status != result.State.Status || state.Iteration != result.State.Iteration {
		return fmt.Errorf("parallel run ended %s after %d iterations, sequential %s after %d",
			state.Status, state.Iteration, result.State.Status, result.State.Iteration)
	}
	parallel := runtime.HashChain(eng.Log().RunEntries(state.RunID))
	if !slices.Equal(parallel, h.chain) {
		return fmt.Errorf("parallel and sequential runs committed different transactions")
	}
	return nil
}
