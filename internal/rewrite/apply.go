package rewrite

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/subst"
)

var tracer = otel.Tracer("github.com/roach88/genesis/internal/rewrite")

// Result is the outcome of a committed transaction.
type Result struct {
	PreHash  string
	PostHash string

	// Modifications are in application order. A pass whose rewrites all
	// produced identical data has none.
	Modifications []Modification

	// RewritesApplied counts rule firings that changed a node.
	RewritesApplied int
}

// NoOp reports whether the transaction left the graph unchanged.
func (r *Result) NoOp() bool {
	return r.PreHash == r.PostHash
}

// Option configures a rewrite pass.
type Option func(*options)

type options struct {
	gensym    *subst.Gensym
	failAfter int
}

// WithGensym sets the fresh-name counter used during instantiation. Without
// it each pass uses a private counter.
func WithGensym(g *subst.Gensym) Option {
	return func(o *options) { o.gensym = g }
}

// WithFailAfter makes the pass fail with ErrInjectedFailure once n
// modifications have been recorded. n == 0 fails before the first rewrite.
// Exists to exercise rollback.
func WithFailAfter(n int) Option {
	return func(o *options) { o.failAfter = n }
}

func newOptions(opts []Option) options {
	o := options{failAfter: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Candidate is a rule whose pattern matched a node, with the bindings.
// Guards are not yet evaluated.
type Candidate struct {
	NodeID   string
	RuleID   string
	Priority int
	Bindings ir.Bindings
}

// MatchNode returns a candidate for every enabled rule whose pattern matches
// n's data, in rule order. It reads nothing but its arguments and is safe to
// call concurrently.
func MatchNode(n graph.Node, rs *RuleSet) []Candidate {
	var out []Candidate
	for _, r := range rs.rules {
		if r.Disabled {
			continue
		}
		res := r.pattern.Match(n.Data)
		if !res.Matched() {
			continue
		}
		out = append(out, Candidate{NodeID: n.ID, RuleID: r.ID, Priority: r.Priority, Bindings: res.First()})
	}
	return out
}

// SortCandidates orders candidates by priority descending, node id
// ascending, then rule id ascending. Application order depends only on this
// sort, never on the order candidates were found in.
func SortCandidates(cs []Candidate) {
	slices.SortFunc(cs, func(a, b Candidate) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		if c := cmp.Compare(a.NodeID, b.NodeID); c != 0 {
			return c
		}
		return cmp.Compare(a.RuleID, b.RuleID)
	})
}

// ApplyRuleSet runs one rewrite pass over g as a single transaction. Nodes
// are visited in id order; for each node the first enabled rule, in rule set
// order, whose pattern matches and whose guard holds is applied, and no other
// rule is tried on that node.
//
// On failure g is restored to its pre-state and an *AbortError is returned.
// A transaction is never cancelled once started, so ctx only carries tracing.
func ApplyRuleSet(ctx context.Context, g *graph.Graph, rs *RuleSet, opts ...Option) (*Result, error) {
	_, span := tracer.Start(ctx, "rewrite.apply_ruleset", trace.WithAttributes(
		attribute.String("ruleset", rs.Name()),
		attribute.Int("rules", rs.Len()),
	))
	defer span.End()

	var res *Result
	err := g.Mutate(func(tx *graph.Tx) error {
		var err error
		res, err = transact(tx, newOptions(opts), func(p *pass) error {
			for _, id := range tx.IDs() {
				if err := p.rewriteNode(id, rs); err != nil {
					return err
				}
			}
			return nil
		})
		return err
	})
	endSpan(span, res, err)
	return res, err
}

// ApplyCandidates applies pre-computed candidates in one transaction. They
// are sorted with SortCandidates first. Each node is rewritten at most once:
// its candidates are tried in order until one's guard holds.
//
// viewHash is the hash of the graph the candidates were computed from. If
// the graph has changed since, nothing is applied and the error is
// ErrStaleView.
func ApplyCandidates(ctx context.Context, g *graph.Graph, viewHash string, rs *RuleSet, candidates []Candidate, opts ...Option) (*Result, error) {
	_, span := tracer.Start(ctx, "rewrite.apply_candidates", trace.WithAttributes(
		attribute.String("ruleset", rs.Name()),
		attribute.Int("candidates", len(candidates)),
	))
	defer span.End()

	sorted := slices.Clone(candidates)
	SortCandidates(sorted)

	var res *Result
	err := g.Mutate(func(tx *graph.Tx) error {
		current, err := tx.Hash()
		if err != nil {
			return err
		}
		if current != viewHash {
			return newError(CodeStaleView, "", "", "candidates computed against %s, graph is at %s", short(viewHash), short(current))
		}
		res, err = transact(tx, newOptions(opts), func(p *pass) error {
			done := make(map[string]bool)
			for _, c := range sorted {
				if done[c.NodeID] {
					continue
				}
				r := rs.lookup(c.RuleID)
				if r == nil {
					return newError(CodeInvalidRule, c.RuleID, c.NodeID, "candidate names a rule not in the set")
				}
				fired, err := p.fire(c.NodeID, r, c.Bindings)
				if err != nil {
					return err
				}
				if fired {
					done[c.NodeID] = true
				}
			}
			return nil
		})
		return err
	})
	endSpan(span, res, err)
	return res, err
}

func endSpan(span trace.Span, res *Result, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(
		attribute.Int("modifications", len(res.Modifications)),
		attribute.Bool("noop", res.NoOp()),
	)
	span.SetStatus(codes.Ok, "")
}

// pass is the mutable state of one transaction body.
type pass struct {
	tx      *graph.Tx
	opts    options
	subst   *subst.Substituter
	mods    []Modification
	applied int
}

// transact snapshots the pre-state, runs body and either commits or rolls
// back. The caller holds the writer lock through tx.
func transact(tx *graph.Tx, o options, body func(*pass) error) (*Result, error) {
	pre, err := tx.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot pre-state: %w", err)
	}

	p := &pass{tx: tx, opts: o, subst: subst.New(o.gensym)}
	err = p.checkFail()
	if err == nil {
		err = body(p)
	}
	if err != nil {
		discarded := len(p.mods)
		rollback(tx, pre)
		return nil, &AbortError{Cause: err, Discarded: discarded, PreHash: pre.Hash}
	}

	post, err := tx.Hash()
	if err != nil {
		// the graph is in a state we cannot hash; undo it
		rollback(tx, pre)
		return nil, &AbortError{Cause: fmt.Errorf("hash post-state: %w", err), Discarded: len(p.mods), PreHash: pre.Hash}
	}
	return &Result{
		PreHash:         pre.Hash,
		PostHash:        post,
		Modifications:   p.mods,
		RewritesApplied: p.applied,
	}, nil
}

// rollback restores pre and panics if the restored state does not hash to
// the recorded pre-state hash.
func rollback(tx *graph.Tx, pre graph.Snapshot) {
	restored, err := tx.Restore(pre)
	if err != nil {
		panic(fmt.Sprintf("rewrite: rollback failed to decode pre-state: %v", err))
	}
	if restored != pre.Hash {
		panic(fmt.Sprintf("rewrite: rollback hash mismatch: want %s, got %s", pre.Hash, restored))
	}
}

func (p *pass) checkFail() error {
	if p.opts.failAfter >= 0 && len(p.mods) == p.opts.failAfter {
		return newError(CodeInjectedFailure, "", "", "after %d modification(s)", len(p.mods))
	}
	return nil
}

func (p *pass) record(m Modification) error {
	p.mods = append(p.mods, m)
	return p.checkFail()
}

// rewriteNode tries the rules of rs on one node in order until one fires.
func (p *pass) rewriteNode(id string, rs *RuleSet) error {
	n, ok := p.tx.Node(id)
	if !ok {
		return nil
	}
	for _, r := range rs.rules {
		if r.Disabled {
			continue
		}
		res := r.pattern.Match(n.Data)
		if !res.Matched() {
			continue
		}
		fired, err := p.fire(id, r, res.First())
		if err != nil {
			return err
		}
		if fired {
			return nil
		}
	}
	return nil
}

// fire applies r to node id with bindings b. fired is false when the guard
// rejected the bindings; a firing that leaves the data unchanged still counts
// as fired but records nothing.
func (p *pass) fire(id string, r *compiled, b ir.Bindings) (fired bool, err error) {
	if r.templateErr != nil {
		return false, fmt.Errorf("node %s: %w", short(id), r.templateErr)
	}
	if r.Guard != nil {
		ok, err := EvalGuardWith(r.Guard, b, p.subst.Instantiate)
		if err != nil {
			return false, withNode(withRule(err, r.ID), id)
		}
		if !ok {
			return false, nil
		}
	}

	data := p.subst.Instantiate(r.Replacement, b)
	old, changed, err := p.tx.Update(id, data)
	if err != nil {
		return false, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	if !changed {
		return true, nil
	}
	updated, _ := p.tx.Node(id)
	p.applied++
	return true, p.record(NodeUpdated{ID: id, Old: old, New: updated})
}

// withRule and withNode fill in location fields on rewrite errors that were
// raised without them.
func withRule(err error, ruleID string) error {
	if e, ok := err.(*Error); ok && e.RuleID == "" {
		c := *e
		c.RuleID = ruleID
		return &c
	}
	return err
}

func withNode(err error, nodeID string) error {
	if e, ok := err.(*Error); ok && e.NodeID == "" {
		c := *e
		c.NodeID = nodeID
		return &c
	}
	return err
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
