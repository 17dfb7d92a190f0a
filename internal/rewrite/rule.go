package rewrite

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/match"
	"github.com/roach88/genesis/internal/subst"
)

// Rule rewrites an expression matching Pattern into Replacement with the
// pattern's bindings substituted in.
type Rule struct {
	ID          string
	Pattern     ir.Pattern
	Replacement ir.Expression

	// Guard, if non-nil, must reduce to true under the bindings for the rule
	// to fire. See EvalGuard for the accepted forms.
	Guard ir.Expression

	// Priority orders rules within a set, higher first.
	Priority int

	// Disabled rules stay in the set but never fire.
	Disabled bool

	// Globals are free names the replacement and guard may mention that are
	// not pattern variables, such as constructor heads.
	Globals []string
}

// compiled is a rule with its pattern prepared and its template checked.
type compiled struct {
	Rule
	pattern     *match.Compiled
	templateErr error
}

func compile(r Rule) *compiled {
	c := &compiled{Rule: r, pattern: match.Compile(r.Pattern)}
	c.Globals = slices.Clone(r.Globals)
	c.templateErr = c.checkTemplate()
	return c
}

// checkTemplate reports replacement and guard variables that no successful
// match can bind.
func (c *compiled) checkTemplate() error {
	allowed := append(slices.Clone(c.pattern.Vars), c.Globals...)
	var errs []error
	if err := subst.CheckWellFormed(c.Replacement, allowed...); err != nil {
		errs = append(errs, newError(CodeUnboundTemplateVariable, c.ID, "", "replacement: %v", err))
	}
	if c.Guard != nil {
		allowed = append(allowed, guardOperators...)
		if err := subst.CheckWellFormed(c.Guard, allowed...); err != nil {
			errs = append(errs, newError(CodeUnboundTemplateVariable, c.ID, "", "guard: %v", err))
		}
	}
	return errors.Join(errs...)
}

// RuleSet is an immutable, priority-ordered list of rules.
type RuleSet struct {
	name  string
	rules []*compiled
}

// NewRuleSet orders rules by priority descending, then id ascending. Rule ids
// must be unique and non-empty, and every rule needs a pattern and a
// replacement.
func NewRuleSet(name string, rules ...Rule) (*RuleSet, error) {
	seen := make(map[string]bool, len(rules))
	out := make([]*compiled, 0, len(rules))
	for i, r := range rules {
		switch {
		case r.ID == "":
			return nil, newError(CodeInvalidRule, "", "", "rule %d has no id", i)
		case seen[r.ID]:
			return nil, newError(CodeInvalidRule, r.ID, "", "duplicate rule id")
		case r.Pattern == nil:
			return nil, newError(CodeInvalidRule, r.ID, "", "missing pattern")
		case r.Replacement == nil:
			return nil, newError(CodeInvalidRule, r.ID, "", "missing replacement")
		}
		seen[r.ID] = true
		out = append(out, compile(r))
	}
	slices.SortFunc(out, func(a, b *compiled) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return &RuleSet{name: name, rules: out}, nil
}

// MustRuleSet is like NewRuleSet but panics on error. For tests and static
// rule tables.
func MustRuleSet(name string, rules ...Rule) *RuleSet {
	rs, err := NewRuleSet(name, rules...)
	if err != nil {
		panic(err)
	}
	return rs
}

// Name returns the rule set's name.
func (rs *RuleSet) Name() string {
	return rs.name
}

// Len returns the number of rules, disabled ones included.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Rules returns the rules in application order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	for i, c := range rs.rules {
		out[i] = c.Rule
	}
	return out
}

// Rule returns the rule with the given id.
func (rs *RuleSet) Rule(id string) (Rule, bool) {
	if c := rs.lookup(id); c != nil {
		return c.Rule, true
	}
	return Rule{}, false
}

func (rs *RuleSet) lookup(id string) *compiled {
	for _, c := range rs.rules {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Validate returns every template error in the set, joined. Application
// reports the same errors lazily when the offending rule first fires.
func (rs *RuleSet) Validate() error {
	var errs []error
	for _, c := range rs.rules {
		if c.templateErr != nil {
			errs = append(errs, c.templateErr)
		}
	}
	return errors.Join(errs...)
}

// Encode returns the canonical form of the rule set, in application order.
func (rs *RuleSet) Encode() (ir.IRObject, error) {
	rules := make(ir.IRArray, len(rs.rules))
	for i, c := range rs.rules {
		v, err := encodeRule(c.Rule)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", c.ID, err)
		}
		rules[i] = v
	}
	return ir.IRObject{"name": ir.IRString(rs.name), "rules": rules}, nil
}

// Hash returns the content hash of the rule set.
func (rs *RuleSet) Hash() (string, error) {
	v, err := rs.Encode()
	if err != nil {
		return "", err
	}
	return ir.HashValue(ir.DomainRuleSet, v)
}

// Marshal returns the canonical JSON of the rule set.
func (rs *RuleSet) Marshal() ([]byte, error) {
	v, err := rs.Encode()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(v)
}

// UnmarshalRuleSet is the inverse of Marshal.
func UnmarshalRuleSet(data []byte) (*RuleSet, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, err
	}
	return DecodeRuleSet(v)
}

// DecodeRuleSet is the inverse of Encode.
func DecodeRuleSet(v ir.IRValue) (*RuleSet, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("rule set must be an object")
	}
	name, ok := obj["name"].(ir.IRString)
	if !ok {
		return nil, fmt.Errorf("rule set name must be a string")
	}
	raw, ok := obj["rules"].(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("rule set rules must be an array")
	}
	rules := make([]Rule, len(raw))
	for i, rv := range raw {
		r, err := decodeRule(rv)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules[i] = r
	}
	return NewRuleSet(string(name), rules...)
}

func encodeRule(r Rule) (ir.IRValue, error) {
	pattern, err := ir.EncodePattern(r.Pattern)
	if err != nil {
		return nil, err
	}
	replacement, err := ir.EncodeExpression(r.Replacement)
	if err != nil {
		return nil, err
	}
	globals := slices.Clone(r.Globals)
	slices.Sort(globals)
	gs := make(ir.IRArray, len(globals))
	for i, g := range globals {
		gs[i] = ir.IRString(g)
	}
	obj := ir.IRObject{
		"id":          ir.IRString(r.ID),
		"priority":    ir.IRInt(r.Priority),
		"disabled":    ir.IRBool(r.Disabled),
		"pattern":     pattern,
		"replacement": replacement,
		"globals":     gs,
	}
	if r.Guard != nil {
		guard, err := ir.EncodeExpression(r.Guard)
		if err != nil {
			return nil, err
		}
		obj["guard"] = guard
	}
	return obj, nil
}

func decodeRule(v ir.IRValue) (Rule, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return Rule{}, fmt.Errorf("rule must be an object")
	}
	id, ok1 := obj["id"].(ir.IRString)
	priority, ok2 := obj["priority"].(ir.IRInt)
	disabled, ok3 := obj["disabled"].(ir.IRBool)
	globals, ok4 := obj["globals"].(ir.IRArray)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return Rule{}, fmt.Errorf("malformed rule header")
	}
	pattern, err := ir.DecodePattern(obj["pattern"])
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: pattern: %w", id, err)
	}
	replacement, err := ir.DecodeExpression(obj["replacement"])
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: replacement: %w", id, err)
	}
	r := Rule{
		ID:          string(id),
		Pattern:     pattern,
		Replacement: replacement,
		Priority:    int(priority),
		Disabled:    bool(disabled),
	}
	for _, g := range globals {
		s, ok := g.(ir.IRString)
		if !ok {
			return Rule{}, fmt.Errorf("rule %s: globals must be strings", id)
		}
		r.Globals = append(r.Globals, string(s))
	}
	if raw, ok := obj["guard"]; ok {
		guard, err := ir.DecodeExpression(raw)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %s: guard: %w", id, err)
		}
		r.Guard = guard
	}
	return r, nil
}
