// Package harness runs rewrite scenarios end to end.
//
// A scenario names a CUE rule set, builds an initial graph, evaluates it
// with the runtime engine against an in-memory store and then checks the
// outcome. Every run is replayed from the store, so a scenario also proves
// that its evaluation is deterministic.
//
// # Scenario Format
//
//	name: simplify_chain
//	description: "wrappers and zero additions disappear"
//	rules: ../rules/simplify
//	config:
//	  max_iterations: 10
//	graph:
//	  root: {kind: lit, value: {type: string, value: root}}
//	  nodes:
//	    - name: a
//	      data: {kind: apply, fn: {kind: var, name: wrap}, arg: ...}
//	    - name: b
//	      parent: a
//	      tags: [leaf]
//	      data: ...
//	  capsules:
//	    - name: audio
//	      id: audio
//	      lineage: [core, "⊙₀"]
//	      data: ...
//	expect:
//	  status: idle
//	  iterations: 3
//	assertions:
//	  - type: node_equals
//	    node: a
//	    data: ...
//	  - type: transaction_count
//	    count: 2
//	  - type: parallel_equivalent
//
// Terms use the tagged IR form, the same one the rule files use.
//
// # Assertion Types
//
//   - node_equals: the named node's final data equals data
//   - node_unchanged: the named node was never rewritten
//   - transaction_count: exactly count transactions committed
//   - replay_matches: replaying the stored run reproduces its hash chain
//   - parallel_equivalent: a parallel evaluation ends in the same state
//
// # Golden Traces
//
// RunWithGolden renders the committed transactions as formatted terms and
// compares them with testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
