package match

import (
	"slices"

	"github.com/roach88/genesis/internal/ir"
)

// PatternVariables returns the sorted, unique names a successful match of p
// would bind.
func PatternVariables(p ir.Pattern) []string {
	var names []string
	walkVars(p, func(name string) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return slices.Compact(names)
}

// Binds reports whether p binds name.
func Binds(p ir.Pattern, name string) bool {
	found := false
	walkVars(p, func(n string) bool {
		found = n == name
		return !found
	})
	return found
}

func hasRepeatedVar(p ir.Pattern) bool {
	var seen []string
	repeated := false
	walkVars(p, func(name string) bool {
		if slices.Contains(seen, name) {
			repeated = true
			return false
		}
		seen = append(seen, name)
		return true
	})
	return repeated
}

// walkVars calls fn for every variable occurrence in p, in pattern order,
// until fn returns false.
func walkVars(p ir.Pattern, fn func(string) bool) bool {
	switch pat := p.(type) {
	case ir.PVar:
		return fn(pat.Name)
	case ir.Bind:
		return walkVars(pat.Sub, fn) && fn(pat.Name)
	case ir.PTuple:
		return walkVarsAll(pat.Items, fn)
	case ir.PList:
		return walkVarsAll(pat.Items, fn)
	case ir.PRecord:
		for _, k := range pat.SortedFields() {
			if !walkVars(pat.Fields[k], fn) {
				return false
			}
		}
		return true
	case ir.Constructor:
		return walkVarsAll(pat.Args, fn)
	case ir.PLambda:
		return walkVars(pat.Param, fn) && walkVars(pat.Body, fn)
	case ir.PApply:
		return walkVars(pat.Fn, fn) && walkVars(pat.Arg, fn)
	default:
		return true
	}
}

func walkVarsAll(ps []ir.Pattern, fn func(string) bool) bool {
	for _, p := range ps {
		if !walkVars(p, fn) {
			return false
		}
	}
	return true
}

// Compiled is a pattern with its variable set precomputed, for matching the
// same pattern against many expressions.
type Compiled struct {
	Pattern ir.Pattern
	Vars    []string
	linear  bool
}

// Compile precomputes the variable set of p.
func Compile(p ir.Pattern) *Compiled {
	return &Compiled{
		Pattern: p,
		Vars:    PatternVariables(p),
		linear:  !hasRepeatedVar(p),
	}
}

// Match is Match(c.Pattern, e).
func (c *Compiled) Match(e ir.Expression) ir.MatchResult {
	return Match(c.Pattern, e)
}

// Matches is Matches(c.Pattern, e) without re-scanning the pattern.
func (c *Compiled) Matches(e ir.Expression) bool {
	if c.linear {
		return check(c.Pattern, e)
	}
	return Match(c.Pattern, e).Matched()
}
