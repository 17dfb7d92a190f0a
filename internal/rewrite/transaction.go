package rewrite

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/subst"
)

type txState int

const (
	txOpen txState = iota
	txCommitted
	txRolledBack
)

// Transaction is a multi-step rewrite: Begin, any number of Apply, Insert,
// Link and Remove steps, then Commit or Rollback.
//
// Each step takes the graph's writer lock for its own duration only. Other
// writers must not touch the graph while a Transaction is open; a step that
// finds the graph changed under it fails with ErrConcurrentWrite and changes
// nothing. ApplyRuleSet is the single-lock form of Begin, Apply, Commit.
type Transaction struct {
	g     *graph.Graph
	rs    *RuleSet
	opts  options
	subst *subst.Substituter

	pre     graph.Snapshot
	head    string
	mods    []Modification
	applied int
	state   txState
}

// Begin snapshots g and opens a transaction applying rs.
func Begin(g *graph.Graph, rs *RuleSet, opts ...Option) (*Transaction, error) {
	pre, err := g.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot pre-state: %w", err)
	}
	o := newOptions(opts)
	return &Transaction{
		g:     g,
		rs:    rs,
		opts:  o,
		subst: subst.New(o.gensym),
		pre:   pre,
		head:  pre.Hash,
	}, nil
}

// PreHash is the hash of the graph at Begin.
func (t *Transaction) PreHash() string {
	return t.pre.Hash
}

// Modifications returns the changes recorded so far.
func (t *Transaction) Modifications() []Modification {
	return slices.Clone(t.mods)
}

// Committed reports whether Commit succeeded.
func (t *Transaction) Committed() bool {
	return t.state == txCommitted
}

// RolledBack reports whether the transaction was rolled back, explicitly or
// because a step failed.
func (t *Transaction) RolledBack() bool {
	return t.state == txRolledBack
}

func (t *Transaction) usable() error {
	switch t.state {
	case txCommitted:
		return ErrAlreadyCommitted
	case txRolledBack:
		return ErrAlreadyRolledBack
	}
	return nil
}

// step runs fn under the writer lock after checking that nobody else wrote
// since the previous step.
func (t *Transaction) step(fn func(tx *graph.Tx) error) error {
	if err := t.usable(); err != nil {
		return err
	}
	return t.g.Mutate(func(tx *graph.Tx) error {
		current, err := tx.Hash()
		if err != nil {
			return err
		}
		if current != t.head {
			return newError(CodeConcurrentWrite, "", "", "expected %s, graph is at %s", short(t.head), short(current))
		}
		if err := fn(tx); err != nil {
			return err
		}
		t.head, err = tx.Hash()
		return err
	})
}

// abort restores the pre-state and closes the transaction.
func (t *Transaction) abort(tx *graph.Tx, cause error, discarded int) error {
	rollback(tx, t.pre)
	t.state = txRolledBack
	t.mods = nil
	t.head = t.pre.Hash
	return &AbortError{Cause: cause, Discarded: discarded, PreHash: t.pre.Hash}
}

// Apply runs one node-major pass of the rule set, like ApplyRuleSet, and
// returns how many nodes it changed. A failure rolls the whole transaction
// back, including earlier steps.
func (t *Transaction) Apply(ctx context.Context) (int, error) {
	_, span := tracer.Start(ctx, "rewrite.transaction.apply", trace.WithAttributes(
		attribute.String("ruleset", t.rs.Name()),
	))
	defer span.End()

	var applied int
	err := t.step(func(tx *graph.Tx) error {
		p := &pass{tx: tx, opts: t.opts, subst: t.subst, mods: t.mods}
		err := p.checkFail()
		if err == nil {
			for _, id := range tx.IDs() {
				if err = p.rewriteNode(id, t.rs); err != nil {
					break
				}
			}
		}
		if err != nil {
			return t.abort(tx, err, len(p.mods))
		}
		t.mods = p.mods
		applied = p.applied
		t.applied += p.applied
		return nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return applied, err
}

// Insert adds a node, recording NodeAdded and the Derivation edge.
func (t *Transaction) Insert(n graph.Node) error {
	return t.step(func(tx *graph.Tx) error {
		e, err := tx.Insert(n)
		if err != nil {
			return err
		}
		added, _ := tx.Node(n.ID)
		return t.record(tx, NodeAdded{Node: added}, EdgeAdded{Edge: e})
	})
}

// Link adds an edge. Linking an existing edge records nothing.
func (t *Transaction) Link(from, to string, typ graph.EdgeType) error {
	return t.step(func(tx *graph.Tx) error {
		added, err := tx.Link(from, to, typ)
		if err != nil || !added {
			return err
		}
		return t.record(tx, EdgeAdded{Edge: graph.Edge{From: from, To: to, Type: typ}})
	})
}

// Remove deletes a node, recording EdgeRemoved for each incident edge and
// then NodeRemoved.
func (t *Transaction) Remove(id string) error {
	return t.step(func(tx *graph.Tx) error {
		n, edges, err := tx.Remove(id)
		if err != nil {
			return err
		}
		mods := make([]Modification, 0, len(edges)+1)
		for _, e := range edges {
			mods = append(mods, EdgeRemoved{Edge: e})
		}
		return t.record(tx, append(mods, NodeRemoved{Node: n})...)
	})
}

// record appends mods, aborting if the injected failure point is reached.
// Graph errors never get here: they are raised before any mutation.
func (t *Transaction) record(tx *graph.Tx, mods ...Modification) error {
	p := &pass{tx: tx, opts: t.opts, mods: t.mods}
	for _, m := range mods {
		if err := p.record(m); err != nil {
			return t.abort(tx, err, len(p.mods))
		}
	}
	t.mods = p.mods
	return nil
}

// Commit closes the transaction and returns its result.
func (t *Transaction) Commit() (*Result, error) {
	if err := t.step(func(*graph.Tx) error { return nil }); err != nil {
		return nil, err
	}
	t.state = txCommitted
	return &Result{
		PreHash:         t.pre.Hash,
		PostHash:        t.head,
		Modifications:   slices.Clone(t.mods),
		RewritesApplied: t.applied,
	}, nil
}

// Rollback restores the graph to its state at Begin. It panics if the
// restored graph does not hash to the pre-state hash.
func (t *Transaction) Rollback() error {
	if err := t.usable(); err != nil {
		return err
	}
	return t.g.Mutate(func(tx *graph.Tx) error {
		rollback(tx, t.pre)
		t.state = txRolledBack
		t.mods = nil
		t.head = t.pre.Hash
		return nil
	})
}
