// Package graph implements the content-addressable DAG of expression nodes.
//
// A Graph has exactly one root (empty RootRef), rejects self loops and cycles
// before mutating, and hashes identically for identical content regardless of
// insertion order. Node ids are slot keys: they are derived from content when
// a node is created and stay fixed while rewrites replace the node's data.
//
// Concurrency: a Graph is guarded by a reader-writer lock. Read methods may
// run concurrently; Mutate holds the writer lock for the whole callback.
package graph

import (
	"slices"
	"sync"

	"github.com/roach88/genesis/internal/ir"
)

// Graph is a hash-linked DAG of expression nodes.
type Graph struct {
	mu     sync.RWMutex
	nodes  map[string]*Node
	edges  []Edge // insertion order
	rootID string
}

// New builds a graph holding only root. The root must be in canonical form:
// empty RootRef and an id equal to its content hash. Legacy roots must go
// through MigrateLegacyRoot first.
func New(root Node) (*Graph, error) {
	if !root.IsRoot() {
		return nil, newError(CodeRootMismatch, "new", root.ID,
			"root must have an empty root_ref (migrate legacy roots explicitly)")
	}
	if err := checkID(root, "new"); err != nil {
		return nil, err
	}
	root = root.clone()
	root.Metadata = root.Metadata.normalized()
	return &Graph{
		nodes:  map[string]*Node{root.ID: &root},
		rootID: root.ID,
	}, nil
}

func checkID(n Node, op string) error {
	want, err := ContentHash(n)
	if err != nil {
		return newError(CodeIDMismatch, op, n.ID, "cannot hash node: %v", err)
	}
	if want != n.ID {
		return newError(CodeIDMismatch, op, n.ID, "id is not the content hash (want %s)", want)
	}
	return nil
}

// RootID returns the id of the root node.
func (g *Graph) RootID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rootID
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Nodes returns copies of all nodes sorted by id.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sortedNodes()
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.edges)
}

// Insert adds a node. The root is created by New; Insert only takes derived
// nodes. On success a Derivation edge root_ref -> id is appended so the node
// is reachable from the root.
func (g *Graph) Insert(n Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, err := g.insert(n)
	return err
}

// Link adds an edge. It fails with SelfLoop when from == to and with
// CycleDetected when to already reaches from. Linking an existing edge is a
// no-op.
func (g *Graph) Link(from, to string, typ EdgeType) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, err := g.link(from, to, typ)
	return err
}

// Remove deletes a node and every edge incident to it.
func (g *Graph) Remove(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, _, err := g.remove(id)
	return err
}

// Derive creates a child of parentID one lineage level deeper and inserts it.
func (g *Graph) Derive(parentID string, data ir.Expression, tags ...string) (Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	parent, ok := g.nodes[parentID]
	if !ok {
		return Node{}, newError(CodeUnknownParent, "derive", parentID, "parent not in graph")
	}
	n, err := NewNode(parentID, data, Metadata{
		LineageDepth: parent.Metadata.LineageDepth + 1,
		Tags:         tags,
	})
	if err != nil {
		return Node{}, err
	}
	if _, err := g.insert(n); err != nil {
		return Node{}, err
	}
	return n.clone(), nil
}

// TopoSort returns node ids in a topological order (Kahn's algorithm).
// Among simultaneously ready nodes the lexicographically smallest id goes
// first, so the order is fully determined by content.
func (g *Graph) TopoSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.topoSort()
}

// Lineage returns the path of ids from the root to id: the shortest one, with
// ties broken by edge insertion order.
func (g *Graph) Lineage(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lineage(id)
}

// CanonicalHash hashes the canonical encoding of the whole graph.
func (g *Graph) CanonicalHash() (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, err := g.snapshot()
	if err != nil {
		return "", err
	}
	return s.Hash, nil
}

// Encode returns the canonical snapshot bytes:
// {"edges": sorted, "nodes": {id: node}, "root_hash": root id}.
func (g *Graph) Encode() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, err := g.snapshot()
	if err != nil {
		return nil, err
	}
	return s.Data, nil
}

// Snapshot captures the canonical encoding and hash of the current state.
func (g *Graph) Snapshot() (Snapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshot()
}

// Mutate runs fn with exclusive access. Readers block until fn returns. The
// Tx must not be retained after fn returns.
func (g *Graph) Mutate(fn func(tx *Tx) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	tx := &Tx{g: g}
	defer func() { tx.g = nil }()
	return fn(tx)
}

func (g *Graph) sortedNodes() []Node {
	ids := g.sortedIDs()
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id].clone()
	}
	return out
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (g *Graph) insert(n Node) (Edge, error) {
	if _, exists := g.nodes[n.ID]; exists {
		return Edge{}, newError(CodeDuplicateID, "insert", n.ID, "node already exists")
	}
	if n.IsRoot() {
		return Edge{}, newError(CodeRootMismatch, "insert", n.ID, "graph already has root %s", g.rootID)
	}
	if _, ok := g.nodes[n.RootRef]; !ok {
		return Edge{}, newError(CodeUnknownParent, "insert", n.ID, "parent %s not in graph", n.RootRef)
	}
	if err := checkID(n, "insert"); err != nil {
		return Edge{}, err
	}

	n = n.clone()
	n.Metadata = n.Metadata.normalized()
	g.nodes[n.ID] = &n
	e := Edge{From: n.RootRef, To: n.ID, Type: Derivation}
	g.edges = append(g.edges, e)
	return e, nil
}

func (g *Graph) link(from, to string, typ EdgeType) (bool, error) {
	if !typ.Valid() {
		return false, newError(CodeInvalidEdge, "link", "", "unknown edge type %q", typ)
	}
	if _, ok := g.nodes[from]; !ok {
		return false, newError(CodeUnknownNode, "link", from, "source not in graph")
	}
	if _, ok := g.nodes[to]; !ok {
		return false, newError(CodeUnknownNode, "link", to, "target not in graph")
	}
	if from == to {
		return false, newError(CodeSelfLoop, "link", from, "edge from a node to itself")
	}
	e := Edge{From: from, To: to, Type: typ}
	if slices.Contains(g.edges, e) {
		return false, nil
	}
	if g.reaches(to, from) {
		return false, newError(CodeCycleDetected, "link", from, "%s already reaches %s", to, from)
	}
	g.edges = append(g.edges, e)
	return true, nil
}

// reaches reports whether target is reachable from start (depth-first).
func (g *Graph) reaches(start, target string) bool {
	adj := g.adjacency()
	visited := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true
		stack = append(stack, adj[id]...)
	}
	return false
}

// adjacency maps each id to its successors in edge insertion order.
func (g *Graph) adjacency() map[string][]string {
	adj := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}

func (g *Graph) remove(id string) (Node, []Edge, error) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, nil, newError(CodeUnknownNode, "remove", id, "node not in graph")
	}
	if id == g.rootID {
		return Node{}, nil, newError(CodeRootMismatch, "remove", id, "the root cannot be removed")
	}

	var removed []Edge
	kept := g.edges[:0:0]
	for _, e := range g.edges {
		if e.From == id || e.To == id {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	delete(g.nodes, id)
	return n.clone(), removed, nil
}

func (g *Graph) topoSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = 0
	}
	for _, e := range g.edges {
		inDegree[e.To]++
	}

	var ready []string
	for id, d := range inDegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	adj := g.adjacency()
	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				pos, _ := slices.BinarySearch(ready, next)
				ready = slices.Insert(ready, pos, next)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, newError(CodeCycleDetected, "topo_sort", "",
			"%d nodes are on a cycle", len(g.nodes)-len(order))
	}
	return order, nil
}

func (g *Graph) lineage(id string) ([]string, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, newError(CodeUnknownNode, "lineage", id, "node not in graph")
	}

	// Level-synchronous BFS. Within a level, edges are scanned in insertion
	// order so the earliest-inserted edge claims a node first.
	prev := map[string]string{g.rootID: ""}
	frontier := map[string]bool{g.rootID: true}
	for len(frontier) > 0 && !hasKey(prev, id) {
		next := make(map[string]bool)
		for _, e := range g.edges {
			if !frontier[e.From] || hasKey(prev, e.To) {
				continue
			}
			prev[e.To] = e.From
			next[e.To] = true
		}
		frontier = next
	}
	if !hasKey(prev, id) {
		return nil, newError(CodeUnknownNode, "lineage", id, "node is not reachable from the root")
	}

	var path []string
	for cur := id; cur != ""; cur = prev[cur] {
		path = append(path, cur)
	}
	slices.Reverse(path)
	return path, nil
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}
