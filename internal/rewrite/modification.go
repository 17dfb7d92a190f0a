package rewrite

import (
	"fmt"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
)

// ModificationKind names a Modification variant.
type ModificationKind string

const (
	KindNodeAdded   ModificationKind = "node_added"
	KindNodeUpdated ModificationKind = "node_updated"
	KindNodeRemoved ModificationKind = "node_removed"
	KindEdgeAdded   ModificationKind = "edge_added"
	KindEdgeRemoved ModificationKind = "edge_removed"
)

// Modification is one recorded change to a graph within a transaction.
// Sealed: the variants below are the only implementations.
type Modification interface {
	Kind() ModificationKind
	isModification()
}

// NodeAdded records an inserted node.
type NodeAdded struct {
	Node graph.Node
}

// NodeUpdated records an in-place rewrite of a node's data. Old and New
// share an id.
type NodeUpdated struct {
	ID  string
	Old graph.Node
	New graph.Node
}

// NodeRemoved records a removed node. Its incident edges are recorded as
// separate EdgeRemoved entries.
type NodeRemoved struct {
	Node graph.Node
}

// EdgeAdded records a new edge.
type EdgeAdded struct {
	Edge graph.Edge
}

// EdgeRemoved records a removed edge.
type EdgeRemoved struct {
	Edge graph.Edge
}

func (NodeAdded) Kind() ModificationKind   { return KindNodeAdded }
func (NodeUpdated) Kind() ModificationKind { return KindNodeUpdated }
func (NodeRemoved) Kind() ModificationKind { return KindNodeRemoved }
func (EdgeAdded) Kind() ModificationKind   { return KindEdgeAdded }
func (EdgeRemoved) Kind() ModificationKind { return KindEdgeRemoved }

func (NodeAdded) isModification()   {}
func (NodeUpdated) isModification() {}
func (NodeRemoved) isModification() {}
func (EdgeAdded) isModification()   {}
func (EdgeRemoved) isModification() {}

// EncodeModification returns the canonical object form of m:
// {"kind": ..., ...variant fields}.
func EncodeModification(m Modification) (ir.IRObject, error) {
	obj := ir.IRObject{"kind": ir.IRString(m.Kind())}
	switch x := m.(type) {
	case NodeAdded:
		n, err := graph.EncodeNode(x.Node)
		if err != nil {
			return nil, err
		}
		obj["node"] = n
	case NodeRemoved:
		n, err := graph.EncodeNode(x.Node)
		if err != nil {
			return nil, err
		}
		obj["node"] = n
	case NodeUpdated:
		old, err := graph.EncodeNode(x.Old)
		if err != nil {
			return nil, err
		}
		updated, err := graph.EncodeNode(x.New)
		if err != nil {
			return nil, err
		}
		obj["id"] = ir.IRString(x.ID)
		obj["old"] = old
		obj["new"] = updated
	case EdgeAdded:
		obj["edge"] = graph.EncodeEdge(x.Edge)
	case EdgeRemoved:
		obj["edge"] = graph.EncodeEdge(x.Edge)
	default:
		return nil, fmt.Errorf("unknown modification %T", m)
	}
	return obj, nil
}

// EncodeModifications encodes a modification list in order.
func EncodeModifications(mods []Modification) (ir.IRArray, error) {
	out := make(ir.IRArray, len(mods))
	for i, m := range mods {
		v, err := EncodeModification(m)
		if err != nil {
			return nil, fmt.Errorf("modification %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// DecodeModification is the inverse of EncodeModification.
func DecodeModification(v ir.IRValue) (Modification, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("modification must be an object")
	}
	kind, ok := obj["kind"].(ir.IRString)
	if !ok {
		return nil, fmt.Errorf("modification kind must be a string")
	}
	switch ModificationKind(kind) {
	case KindNodeAdded, KindNodeRemoved:
		n, err := graph.DecodeNode(obj["node"])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		if ModificationKind(kind) == KindNodeAdded {
			return NodeAdded{Node: n}, nil
		}
		return NodeRemoved{Node: n}, nil
	case KindNodeUpdated:
		id, ok := obj["id"].(ir.IRString)
		if !ok {
			return nil, fmt.Errorf("node_updated: id must be a string")
		}
		old, err := graph.DecodeNode(obj["old"])
		if err != nil {
			return nil, fmt.Errorf("node_updated old: %w", err)
		}
		updated, err := graph.DecodeNode(obj["new"])
		if err != nil {
			return nil, fmt.Errorf("node_updated new: %w", err)
		}
		return NodeUpdated{ID: string(id), Old: old, New: updated}, nil
	case KindEdgeAdded, KindEdgeRemoved:
		e, err := graph.DecodeEdge(obj["edge"])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		if ModificationKind(kind) == KindEdgeAdded {
			return EdgeAdded{Edge: e}, nil
		}
		return EdgeRemoved{Edge: e}, nil
	default:
		return nil, fmt.Errorf("unknown modification kind %q", kind)
	}
}

// DecodeModifications is the inverse of EncodeModifications.
func DecodeModifications(v ir.IRValue) ([]Modification, error) {
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("modifications must be an array")
	}
	out := make([]Modification, len(arr))
	for i, raw := range arr {
		m, err := DecodeModification(raw)
		if err != nil {
			return nil, fmt.Errorf("modification %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}
