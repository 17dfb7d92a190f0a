package harness

import (
	"github.com/roach88/genesis/internal/runtime"
)

// Change is one modification of a transaction, rendered for reading.
type Change struct {
	Kind string `json:"kind"`

	// Node is the scenario name of the node, or its short id when the node
	// has no name.
	Node   string `json:"node"`
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// TraceEvent is one committed transaction.
type TraceEvent struct {
	Seq             int64    `json:"seq"`
	Iteration       int      `json:"iteration"`
	RewritesApplied int      `json:"rewrites_applied"`
	Changes         []Change `json:"changes"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when the expectation and every assertion held.
	Pass bool `json:"pass"`

	State runtime.EvaluationState `json:"-"`

	Trace []TraceEvent `json:"trace"`

	// Final maps node names to their formatted data after the run.
	Final map[string]string `json:"final"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Final:  make(map[string]string),
		Errors: []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
