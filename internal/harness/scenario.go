package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/runtime"
)

// RootName refers to the graph root in parent fields.
const RootName = "root"

// Scenario defines one end-to-end rewrite scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Rules is a CUE rule file or directory, relative to the scenario file
	// when loaded with LoadScenarioWithBasePath.
	Rules string `yaml:"rules"`

	Config ScenarioConfig `yaml:"config,omitempty"`

	Graph GraphSpec `yaml:"graph"`

	// Expect checks the final evaluation state. Nil checks nothing.
	Expect *Expectation `yaml:"expect,omitempty"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ScenarioConfig mirrors runtime.Config. Timeouts are deliberately absent:
// a scenario must end the same way on every machine.
type ScenarioConfig struct {
	MaxIterations int  `yaml:"max_iterations,omitempty"`
	Parallel      bool `yaml:"parallel,omitempty"`
	Workers       int  `yaml:"workers,omitempty"`
}

// Runtime converts c to an engine config.
func (c ScenarioConfig) Runtime() runtime.Config {
	return runtime.Config{MaxIterations: c.MaxIterations, Parallel: c.Parallel, Workers: c.Workers}
}

// GraphSpec is the initial graph.
type GraphSpec struct {
	// Root is the root node's data.
	Root map[string]any `yaml:"root"`

	// Nodes are derived in order, so a parent must come before its children.
	Nodes []NodeSpec `yaml:"nodes,omitempty"`

	// Capsules are admitted after Nodes.
	Capsules []CapsuleSpec `yaml:"capsules,omitempty"`
}

// NodeSpec is a derived node.
type NodeSpec struct {
	Name string `yaml:"name"`

	// Parent names an earlier node. Empty means the root.
	Parent string `yaml:"parent,omitempty"`

	Tags []string       `yaml:"tags,omitempty"`
	Data map[string]any `yaml:"data"`
}

// CapsuleSpec is an externally produced node admitted through capsule
// verification. Signed stands in for the signature check; lineage is
// checked for real.
type CapsuleSpec struct {
	Name     string            `yaml:"name"`
	ID       string            `yaml:"id"`
	Parent   string            `yaml:"parent,omitempty"`
	Lineage  []string          `yaml:"lineage"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
	Unsigned bool              `yaml:"unsigned,omitempty"`

	// Attach names the graph node the capsule hangs off. Empty means the
	// root.
	Attach string `yaml:"attach,omitempty"`

	Data map[string]any `yaml:"data"`

	// Rejected expects the capsule to fail verification.
	Rejected bool `yaml:"rejected,omitempty"`
}

// Expectation checks the final evaluation state. Zero or nil fields are not
// checked.
type Expectation struct {
	Status       runtime.Status `yaml:"status,omitempty"`
	Iterations   int            `yaml:"iterations,omitempty"`
	RulesFired   int            `yaml:"rules_fired,omitempty"`
	Transactions *int           `yaml:"transactions,omitempty"`
}

// Assertion checks the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Node names a node (node_equals, node_unchanged).
	Node string `yaml:"node,omitempty"`

	// Data is the expected tagged term (node_equals).
	Data map[string]any `yaml:"data,omitempty"`

	// Count is the expected number (transaction_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertNodeEquals         = "node_equals"
	AssertNodeUnchanged      = "node_unchanged"
	AssertTransactionCount   = "transaction_count"
	AssertReplayMatches      = "replay_matches"
	AssertParallelEquivalent = "parallel_equivalent"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath is LoadScenario with the rules path resolved
// against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Rules != "" && !filepath.IsAbs(scenario.Rules) && basePath != "" {
		scenario.Rules = filepath.Join(basePath, scenario.Rules)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Rules == "" {
		return fmt.Errorf("rules is required")
	}
	if s.Graph.Root == nil {
		return fmt.Errorf("graph.root is required")
	}
	if err := s.Config.Runtime().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	names := map[string]bool{RootName: true}
	for i, n := range s.Graph.Nodes {
		if err := checkName(names, n.Name, n.Parent); err != nil {
			return fmt.Errorf("graph.nodes[%d]: %w", i, err)
		}
		if n.Data == nil {
			return fmt.Errorf("graph.nodes[%d]: data is required", i)
		}
		names[n.Name] = true
	}
	for i, c := range s.Graph.Capsules {
		if err := checkName(names, c.Name, c.Attach); err != nil {
			return fmt.Errorf("graph.capsules[%d]: %w", i, err)
		}
		if c.Data == nil {
			return fmt.Errorf("graph.capsules[%d]: data is required", i)
		}
		if !c.Rejected {
			names[c.Name] = true
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, names); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func checkName(names map[string]bool, name, parent string) error {
	switch {
	case name == "":
		return fmt.Errorf("name is required")
	case names[name]:
		return fmt.Errorf("duplicate name %q", name)
	case parent != "" && !names[parent]:
		return fmt.Errorf("unknown parent %q", parent)
	}
	return nil
}

func validateAssertion(a Assertion, names map[string]bool) error {
	switch a.Type {
	case AssertNodeEquals:
		if a.Data == nil {
			return fmt.Errorf("data is required for node_equals")
		}
		fallthrough
	case AssertNodeUnchanged:
		if !names[a.Node] {
			return fmt.Errorf("unknown node %q", a.Node)
		}
	case AssertTransactionCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for transaction_count")
		}
	case AssertReplayMatches, AssertParallelEquivalent:
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// decodeTerm converts a YAML-decoded tagged term into an expression.
func decodeTerm(m map[string]any) (ir.Expression, error) {
	v, err := ir.ToIRValue(m)
	if err != nil {
		return nil, err
	}
	return ir.DecodeExpression(v)
}

// buildGraph creates the initial graph and returns it with the node ids by
// scenario name.
func (s *Scenario) buildGraph() (*graph.Graph, map[string]string, error) {
	data, err := decodeTerm(s.Graph.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("graph.root: %w", err)
	}
	root, err := graph.NewRoot(data, graph.Metadata{})
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.New(root)
	if err != nil {
		return nil, nil, err
	}

	ids := map[string]string{RootName: root.ID}
	for i, spec := range s.Graph.Nodes {
		data, err := decodeTerm(spec.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("graph.nodes[%d]: %w", i, err)
		}
		parent := spec.Parent
		if parent == "" {
			parent = RootName
		}
		n, err := g.Derive(ids[parent], data, spec.Tags...)
		if err != nil {
			return nil, nil, fmt.Errorf("graph.nodes[%d]: %w", i, err)
		}
		ids[spec.Name] = n.ID
	}
	return g, ids, nil
}
