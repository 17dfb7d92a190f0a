package graph

import (
	"fmt"

	"github.com/roach88/genesis/internal/ir"
)

// Tx is the handle Mutate passes to its callback. Every method runs under the
// writer lock already held by Mutate and must not be called after the
// callback returns.
type Tx struct {
	g *Graph
}

func (tx *Tx) graph() *Graph {
	if tx.g == nil {
		panic("graph: Tx used outside Mutate")
	}
	return tx.g
}

// RootID returns the id of the root node.
func (tx *Tx) RootID() string {
	return tx.graph().rootID
}

// Node returns a copy of the node with the given id.
func (tx *Tx) Node(id string) (Node, bool) {
	n, ok := tx.graph().nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// IDs returns all node ids sorted lexicographically.
func (tx *Tx) IDs() []string {
	return tx.graph().sortedIDs()
}

// Update replaces the data of an existing node in place. The id is kept and
// the metadata timestamp is bumped by one. When data is structurally equal to
// the current data nothing changes and changed is false.
func (tx *Tx) Update(id string, data ir.Expression) (old Node, changed bool, err error) {
	g := tx.graph()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false, newError(CodeUnknownNode, "update", id, "node not in graph")
	}
	if data == nil {
		return Node{}, false, fmt.Errorf("update %s: nil data", id)
	}
	old = n.clone()
	if ir.Equal(n.Data, data) {
		return old, false, nil
	}
	n.Data = data
	n.Metadata.Timestamp++
	return old, true, nil
}

// Insert adds a derived node and returns the Derivation edge it created.
func (tx *Tx) Insert(n Node) (Edge, error) {
	return tx.graph().insert(n)
}

// Link adds an edge; added is false when the edge already existed.
func (tx *Tx) Link(from, to string, typ EdgeType) (added bool, err error) {
	return tx.graph().link(from, to, typ)
}

// Remove deletes a node and returns it with the edges that went with it.
func (tx *Tx) Remove(id string) (Node, []Edge, error) {
	return tx.graph().remove(id)
}

// Hash returns the canonical hash of the current state.
func (tx *Tx) Hash() (string, error) {
	s, err := tx.graph().snapshot()
	if err != nil {
		return "", err
	}
	return s.Hash, nil
}

// Snapshot captures the current state.
func (tx *Tx) Snapshot() (Snapshot, error) {
	return tx.graph().snapshot()
}

// Restore replaces the whole state with the one encoded in s and returns the
// hash recomputed from the restored state. Callers compare it to s.Hash.
func (tx *Tx) Restore(s Snapshot) (string, error) {
	g := tx.graph()
	nodes, edges, rootID, err := decodeState(s.Data)
	if err != nil {
		return "", err
	}
	g.nodes = nodes
	g.edges = restoreEdgeOrder(edges, s.edgeOrder)
	g.rootID = rootID
	return tx.Hash()
}
