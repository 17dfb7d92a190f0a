package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/genesis/internal/capsule"
	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/rewrite"
	"github.com/roach88/genesis/internal/rules"
	"github.com/roach88/genesis/internal/runtime"
	"github.com/roach88/genesis/internal/store"
)

// Harness holds the per-scenario execution state.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	logger   *slog.Logger
	rules    *rewrite.RuleSet

	// ids maps scenario names to node ids; names is the inverse.
	ids   map[string]string
	names map[string]string

	initial graph.Snapshot
	graph   *graph.Graph

	// chain is the hash chain of the scenario's own run.
	chain [][2]string
}

// Run executes a scenario and returns its result. An error means the
// scenario could not be executed at all; failed expectations are reported
// in the result.
//
// Each scenario runs in a fresh in-memory store with a fixed run id, so
// identical scenarios produce identical results.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	rs, err := rules.LoadRuleSet(scenario.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	g, ids, err := scenario.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		store:    st,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		rules:    rs,
		ids:      ids,
		graph:    g,
	}

	result := NewResult()
	if err := h.admitCapsules(ctx, result); err != nil {
		return nil, err
	}
	h.names = make(map[string]string, len(h.ids))
	for name, id := range h.ids {
		h.names[id] = name
	}
	if h.initial, err = g.Snapshot(); err != nil {
		return nil, err
	}

	eng, err := h.engine(scenario.Config.Runtime(), runtime.WithLogSink(st))
	if err != nil {
		return nil, err
	}
	state, err := eng.Evaluate(ctx, g, rs)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	result.State = state

	entries := eng.Log().RunEntries(state.RunID)
	h.chain = runtime.HashChain(entries)
	for _, e := range entries {
		result.Trace = append(result.Trace, h.traceEvent(e))
	}
	for _, name := range slices.Sorted(maps.Keys(h.ids)) {
		if n, ok := g.Node(h.ids[name]); ok {
			result.Final[name] = ir.Format(n.Data)
		}
	}

	if scenario.Expect != nil {
		for _, msg := range checkExpectation(*scenario.Expect, state) {
			result.AddError(msg)
		}
	}
	for _, msg := range h.EvaluateAssertions(ctx, result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"status", state.Status,
		"pass", result.Pass,
	)
	return result, nil
}

func (h *Harness) engine(cfg runtime.Config, opts ...runtime.EngineOption) (*runtime.Engine, error) {
	opts = append([]runtime.EngineOption{
		runtime.WithLogger(h.logger),
		runtime.WithRunIDGenerator(runtime.NewFixedGenerator("scenario-" + h.scenario.Name)),
	}, opts...)
	return runtime.New(cfg, opts...)
}

// admitCapsules verifies and inserts the scenario's capsules. A capsule
// marked rejected must fail verification and leave the graph unchanged.
func (h *Harness) admitCapsules(ctx context.Context, result *Result) error {
	unsigned := make(map[string]bool)
	for _, spec := range h.scenario.Graph.Capsules {
		unsigned[spec.ID] = spec.Unsigned
	}
	verifier := capsule.VerifierFunc(func(_ context.Context, m capsule.Manifest) (capsule.Proof, error) {
		return capsule.Proof{
			SignatureValid: !unsigned[m.ID],
			LineageValid:   capsule.CheckLineage(m) == nil,
		}, nil
	})

	for i, spec := range h.scenario.Graph.Capsules {
		data, err := decodeTerm(spec.Data)
		if err != nil {
			return fmt.Errorf("graph.capsules[%d]: %w", i, err)
		}
		attach := spec.Attach
		if attach == "" {
			attach = RootName
		}
		parent, _ := h.graph.Node(h.ids[attach])
		node, err := graph.NewNode(parent.ID, data, graph.Metadata{
			LineageDepth: parent.Metadata.LineageDepth + 1,
			Tags:         []string{capsule.Tag(spec.ID)},
		})
		if err != nil {
			return fmt.Errorf("graph.capsules[%d]: %w", i, err)
		}

		m := capsule.Manifest{ID: spec.ID, Parent: spec.Parent, Lineage: spec.Lineage, Metadata: spec.Metadata}

		err = capsule.Admit(ctx, h.graph, verifier, m, node)
		switch {
		case spec.Rejected && err == nil:
			result.AddError(fmt.Sprintf("capsule %q: expected rejection, was admitted", spec.Name))
			h.ids[spec.Name] = node.ID
		case spec.Rejected:
			h.logger.Info("capsule rejected", "capsule", spec.ID, "error", err)
		case err != nil:
			result.AddError(fmt.Sprintf("capsule %q: %v", spec.Name, err))
		default:
			h.ids[spec.Name] = node.ID
		}
	}
	return nil
}

// traceEvent renders a log entry with scenario names in place of ids.
func (h *Harness) traceEvent(e runtime.LogEntry) TraceEvent {
	ev := TraceEvent{
		Seq:             e.Seq,
		Iteration:       e.Iteration,
		RewritesApplied: e.RewritesApplied,
		Changes:         make([]Change, 0, len(e.Modifications)),
	}
	for _, m := range e.Modifications {
		c := Change{Kind: string(m.Kind())}
		switch x := m.(type) {
		case rewrite.NodeUpdated:
			c.Node = h.nodeName(x.ID)
			c.Before = ir.Format(x.Old.Data)
			c.After = ir.Format(x.New.Data)
		case rewrite.NodeAdded:
			c.Node = h.nodeName(x.Node.ID)
			c.After = ir.Format(x.Node.Data)
		case rewrite.NodeRemoved:
			c.Node = h.nodeName(x.Node.ID)
			c.Before = ir.Format(x.Node.Data)
		case rewrite.EdgeAdded:
			c.Node = h.nodeName(x.Edge.From) + " -> " + h.nodeName(x.Edge.To)
		case rewrite.EdgeRemoved:
			c.Node = h.nodeName(x.Edge.From) + " -> " + h.nodeName(x.Edge.To)
		}
		ev.Changes = append(ev.Changes, c)
	}
	return ev
}

func (h *Harness) nodeName(id string) string {
	if name, ok := h.names[id]; ok {
		return name
	}
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func checkExpectation(want Expectation, got runtime.EvaluationState) []string {
	var errs []string
	if want.Status != "" && want.Status != got.Status {
		errs = append(errs, fmt.Sprintf("status: expected %s, got %s", want.Status, got.Status))
	}
	if want.Iterations != 0 && want.Iterations != got.Iteration {
		errs = append(errs, fmt.Sprintf("iterations: expected %d, got %d", want.Iterations, got.Iteration))
	}
	if want.RulesFired != 0 && want.RulesFired != got.RulesFired {
		errs = append(errs, fmt.Sprintf("rules_fired: expected %d, got %d", want.RulesFired, got.RulesFired))
	}
	if want.Transactions != nil && *want.Transactions != got.Transactions {
		errs = append(errs, fmt.Sprintf("transactions: expected %d, got %d", *want.Transactions, got.Transactions))
	}
	return errs
}
