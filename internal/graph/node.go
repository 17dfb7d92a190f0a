package graph

import (
	"fmt"
	"slices"

	"github.com/roach88/genesis/internal/ir"
)

// EdgeType classifies an edge.
type EdgeType string

const (
	Dependency EdgeType = "dependency"
	Derivation EdgeType = "derivation"
	Reference  EdgeType = "reference"
)

// Valid reports whether t is one of the known edge types.
func (t EdgeType) Valid() bool {
	switch t {
	case Dependency, Derivation, Reference:
		return true
	}
	return false
}

// Edge is a directed edge between two node ids.
type Edge struct {
	From string
	To   string
	Type EdgeType
}

func compareEdges(a, b Edge) int {
	if c := compareStrings(a.From, b.From); c != 0 {
		return c
	}
	if c := compareStrings(a.To, b.To); c != 0 {
		return c
	}
	return compareStrings(string(a.Type), string(b.Type))
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Metadata is bookkeeping carried with each node.
//
// Timestamp is a logical revision counter, never a wall clock. An in-place
// rewrite bumps it by one.
type Metadata struct {
	Timestamp    int64
	LineageDepth int64
	Tags         []string
}

// normalized returns a copy with tags sorted and deduplicated.
func (m Metadata) normalized() Metadata {
	tags := slices.Clone(m.Tags)
	slices.Sort(tags)
	m.Tags = slices.Compact(tags)
	return m
}

// HasTag reports whether tag is set.
func (m Metadata) HasTag(tag string) bool {
	return slices.Contains(m.Tags, tag)
}

// Node is a slot in the graph. ID is assigned from content at creation and is
// never recomputed: rewrites replace Data under the same ID.
type Node struct {
	ID       string
	RootRef  string
	Data     ir.Expression
	Metadata Metadata
}

// IsRoot reports whether n has the root form (empty RootRef).
func (n Node) IsRoot() bool {
	return n.RootRef == ""
}

// clone copies the mutable parts of n. Data is immutable and shared.
func (n Node) clone() Node {
	n.Metadata.Tags = slices.Clone(n.Metadata.Tags)
	return n
}

// NewRoot builds the root node for data and assigns its id.
func NewRoot(data ir.Expression, meta Metadata) (Node, error) {
	return newNode("", data, meta)
}

// NewNode builds a node derived from parentID and assigns its id.
func NewNode(parentID string, data ir.Expression, meta Metadata) (Node, error) {
	if parentID == "" {
		return Node{}, newError(CodeUnknownParent, "new_node", "", "non-root node needs a parent id")
	}
	return newNode(parentID, data, meta)
}

func newNode(rootRef string, data ir.Expression, meta Metadata) (Node, error) {
	n := Node{RootRef: rootRef, Data: data, Metadata: meta.normalized()}
	id, err := ContentHash(n)
	if err != nil {
		return Node{}, err
	}
	n.ID = id
	return n, nil
}

// ContentHash computes Hash(domain || canonical(node sans id)). Root nodes
// hash under the root domain, everything else under the node domain.
func ContentHash(n Node) (string, error) {
	obj, err := encodeNodeBody(n)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	domain := ir.DomainNode
	if n.IsRoot() {
		domain = ir.DomainRoot
	}
	return ir.HashValue(domain, obj)
}

// MigrateLegacyRoot converts a root written in the legacy form, where RootRef
// held the root's own hash instead of "", into the canonical form with a
// freshly computed id. Canonical roots are returned unchanged. Any other
// non-empty RootRef is rejected: only a self-reference is a legacy root.
func MigrateLegacyRoot(n Node) (Node, error) {
	if n.IsRoot() {
		return n, nil
	}

	canonical := n.clone()
	canonical.RootRef = ""
	id, err := ContentHash(canonical)
	if err != nil {
		return Node{}, err
	}

	if n.RootRef != n.ID && n.RootRef != id {
		return Node{}, newError(CodeRootMismatch, "migrate_root", n.ID,
			"root_ref %s is not a self reference", n.RootRef)
	}
	canonical.ID = id
	canonical.Metadata = canonical.Metadata.normalized()
	return canonical, nil
}

func encodeNodeBody(n Node) (ir.IRObject, error) {
	data, err := ir.EncodeExpression(n.Data)
	if err != nil {
		return nil, err
	}
	meta := n.Metadata.normalized()
	tags := make(ir.IRArray, len(meta.Tags))
	for i, t := range meta.Tags {
		tags[i] = ir.IRString(t)
	}
	return ir.IRObject{
		"root_ref": ir.IRString(n.RootRef),
		"data":     data,
		"metadata": ir.IRObject{
			"timestamp":     ir.IRInt(meta.Timestamp),
			"lineage_depth": ir.IRInt(meta.LineageDepth),
			"tags":          tags,
		},
	}, nil
}

// EncodeNode returns the canonical object form of n, id included.
func EncodeNode(n Node) (ir.IRObject, error) {
	obj, err := encodeNodeBody(n)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.ID, err)
	}
	obj["id"] = ir.IRString(n.ID)
	return obj, nil
}

// EncodeEdge returns the canonical object form of e.
func EncodeEdge(e Edge) ir.IRObject {
	return ir.IRObject{
		"from": ir.IRString(e.From),
		"to":   ir.IRString(e.To),
		"type": ir.IRString(e.Type),
	}
}

// DecodeNode is the inverse of EncodeNode. It does not check the id.
func DecodeNode(v ir.IRValue) (Node, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return Node{}, fmt.Errorf("node must be an object")
	}
	id, ok := obj["id"].(ir.IRString)
	if !ok {
		return Node{}, fmt.Errorf("node id must be a string")
	}
	rootRef, ok := obj["root_ref"].(ir.IRString)
	if !ok {
		return Node{}, fmt.Errorf("node %s: root_ref must be a string", id)
	}
	data, err := ir.DecodeExpression(obj["data"])
	if err != nil {
		return Node{}, fmt.Errorf("node %s: %w", id, err)
	}
	meta, ok := obj["metadata"].(ir.IRObject)
	if !ok {
		return Node{}, fmt.Errorf("node %s: metadata must be an object", id)
	}
	ts, ok1 := meta["timestamp"].(ir.IRInt)
	depth, ok2 := meta["lineage_depth"].(ir.IRInt)
	rawTags, ok3 := meta["tags"].(ir.IRArray)
	if !ok1 || !ok2 || !ok3 {
		return Node{}, fmt.Errorf("node %s: malformed metadata", id)
	}
	var tags []string
	for _, t := range rawTags {
		s, ok := t.(ir.IRString)
		if !ok {
			return Node{}, fmt.Errorf("node %s: tag must be a string", id)
		}
		tags = append(tags, string(s))
	}
	return Node{
		ID:      string(id),
		RootRef: string(rootRef),
		Data:    data,
		Metadata: Metadata{
			Timestamp:    int64(ts),
			LineageDepth: int64(depth),
			Tags:         tags,
		},
	}, nil
}

// DecodeEdge is the inverse of EncodeEdge.
func DecodeEdge(v ir.IRValue) (Edge, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return Edge{}, fmt.Errorf("edge must be an object")
	}
	from, ok1 := obj["from"].(ir.IRString)
	to, ok2 := obj["to"].(ir.IRString)
	typ, ok3 := obj["type"].(ir.IRString)
	if !ok1 || !ok2 || !ok3 {
		return Edge{}, fmt.Errorf("edge fields must be strings")
	}
	e := Edge{From: string(from), To: string(to), Type: EdgeType(typ)}
	if !e.Type.Valid() {
		return Edge{}, fmt.Errorf("unknown edge type %q", typ)
	}
	return e, nil
}
