package graph

import (
	"fmt"
	"slices"

	"github.com/roach88/genesis/internal/ir"
)

// Snapshot is a point-in-time canonical encoding of a graph.
type Snapshot struct {
	// Data is the canonical JSON encoding.
	Data []byte

	// Hash is the graph's canonical hash (graph domain over Data).
	Hash string

	// edgeOrder keeps insertion order across a restore. The canonical
	// encoding sorts edges, and lineage tie-breaks need the original order.
	edgeOrder []Edge
}

// NewSnapshot rebuilds a Snapshot read back from storage. edgeOrder is the
// insertion order reported by EdgeOrder; nil means the encoded order.
func NewSnapshot(data []byte, edgeOrder []Edge) Snapshot {
	s := Snapshot{Data: data, Hash: ir.HashBytes(ir.DomainGraph, data)}
	if len(edgeOrder) > 0 {
		s.edgeOrder = slices.Clone(edgeOrder)
	}
	return s
}

// EdgeOrder returns the graph's edges in insertion order.
func (s Snapshot) EdgeOrder() []Edge {
	return slices.Clone(s.edgeOrder)
}

// ID is the snapshot's storage key: Data hashed under the snapshot domain.
func (s Snapshot) ID() string {
	return ir.HashBytes(ir.DomainSnapshot, s.Data)
}

func (g *Graph) encodeValue() (ir.IRObject, error) {
	nodes := make(ir.IRObject, len(g.nodes))
	for id, n := range g.nodes {
		obj, err := EncodeNode(*n)
		if err != nil {
			return nil, err
		}
		nodes[id] = obj
	}

	sorted := slices.Clone(g.edges)
	slices.SortFunc(sorted, compareEdges)
	edges := make(ir.IRArray, len(sorted))
	for i, e := range sorted {
		edges[i] = EncodeEdge(e)
	}

	return ir.IRObject{
		"nodes":     nodes,
		"edges":     edges,
		"root_hash": ir.IRString(g.rootID),
	}, nil
}

func (g *Graph) snapshot() (Snapshot, error) {
	v, err := g.encodeValue()
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return NewSnapshot(data, g.edges), nil
}

// Decode rebuilds a graph from canonical snapshot bytes. Edges are taken in
// their encoded (sorted) order. Node ids are not re-derived from content:
// rewritten nodes legitimately keep the id of their original content.
func Decode(data []byte) (*Graph, error) {
	nodes, edges, rootID, err := decodeState(data)
	if err != nil {
		return nil, err
	}
	return &Graph{nodes: nodes, edges: edges, rootID: rootID}, nil
}

// DecodeSnapshot is Decode for a Snapshot value, keeping its edge order.
func DecodeSnapshot(s Snapshot) (*Graph, error) {
	g, err := Decode(s.Data)
	if err != nil {
		return nil, err
	}
	g.edges = restoreEdgeOrder(g.edges, s.edgeOrder)
	return g, nil
}

func corrupt(format string, args ...any) error {
	return newError(CodeCorruptSnapshot, "decode", "", format, args...)
}

func decodeState(data []byte) (map[string]*Node, []Edge, string, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, nil, "", corrupt("%v", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, nil, "", corrupt("snapshot must be an object")
	}
	rootID, ok := obj["root_hash"].(ir.IRString)
	if !ok {
		return nil, nil, "", corrupt("root_hash must be a string")
	}
	rawNodes, ok := obj["nodes"].(ir.IRObject)
	if !ok {
		return nil, nil, "", corrupt("nodes must be an object")
	}
	rawEdges, ok := obj["edges"].(ir.IRArray)
	if !ok {
		return nil, nil, "", corrupt("edges must be an array")
	}

	nodes := make(map[string]*Node, len(rawNodes))
	roots := 0
	for _, id := range rawNodes.SortedKeys() {
		n, err := DecodeNode(rawNodes[id])
		if err != nil {
			return nil, nil, "", corrupt("%v", err)
		}
		if n.ID != id {
			return nil, nil, "", corrupt("node keyed %s carries id %s", id, n.ID)
		}
		// a non-root's parent may since have been removed
		if n.IsRoot() {
			roots++
		}
		nodes[id] = &n
	}
	root, ok := nodes[string(rootID)]
	if roots != 1 || !ok || !root.IsRoot() {
		return nil, nil, "", corrupt("snapshot must hold exactly one root, named by root_hash")
	}

	edges := make([]Edge, 0, len(rawEdges))
	for i, raw := range rawEdges {
		e, err := DecodeEdge(raw)
		if err != nil {
			return nil, nil, "", corrupt("edge[%d]: %v", i, err)
		}
		if nodes[e.From] == nil || nodes[e.To] == nil || e.From == e.To {
			return nil, nil, "", corrupt("edge[%d] %s -> %s is dangling or a self loop", i, e.From, e.To)
		}
		edges = append(edges, e)
	}

	g := &Graph{nodes: nodes, edges: edges, rootID: string(rootID)}
	if _, err := g.topoSort(); err != nil {
		return nil, nil, "", corrupt("edges contain a cycle")
	}
	return nodes, edges, string(rootID), nil
}

// restoreEdgeOrder returns order when it is a permutation of decoded, and
// decoded otherwise.
func restoreEdgeOrder(decoded, order []Edge) []Edge {
	if len(order) != len(decoded) {
		return decoded
	}
	a := slices.Clone(decoded)
	b := slices.Clone(order)
	slices.SortFunc(a, compareEdges)
	slices.SortFunc(b, compareEdges)
	if !slices.Equal(a, b) {
		return decoded
	}
	return slices.Clone(order)
}

// View is an immutable copy of the graph for lock-free concurrent reads.
type View struct {
	// Nodes are sorted by id.
	Nodes []Node

	// Hash is the canonical hash of the graph the view was taken from.
	Hash string

	index map[string]int
}

// View captures the current nodes and hash.
func (g *Graph) View() (*View, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s, err := g.snapshot()
	if err != nil {
		return nil, err
	}
	nodes := g.sortedNodes()
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}
	return &View{Nodes: nodes, Hash: s.Hash, index: index}, nil
}

// Node returns the node with the given id.
func (v *View) Node(id string) (Node, bool) {
	i, ok := v.index[id]
	if !ok {
		return Node{}, false
	}
	return v.Nodes[i], true
}
