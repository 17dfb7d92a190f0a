package subst

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/match"
)

// NameSet is a set of variable names.
type NameSet map[string]struct{}

// Has reports whether name is in the set.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts names.
func (s NameSet) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

// Sorted returns the names in lexicographic order.
func (s NameSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// FreeVars returns the variables of e not bound by an enclosing Lambda, Let
// or match arm pattern.
func FreeVars(e ir.Expression) NameSet {
	out := NameSet{}
	freeVars(e, nil, out)
	return out
}

// OccursFree reports whether name occurs free in e.
func OccursFree(name string, e ir.Expression) bool {
	return occursFree(name, e)
}

// bound is a persistent scope list; shadowing only ever prepends.
type bound struct {
	name string
	next *bound
}

func (b *bound) has(name string) bool {
	for ; b != nil; b = b.next {
		if b.name == name {
			return true
		}
	}
	return false
}

func (b *bound) with(names ...string) *bound {
	for _, n := range names {
		b = &bound{name: n, next: b}
	}
	return b
}

func freeVars(e ir.Expression, scope *bound, out NameSet) {
	switch x := e.(type) {
	case ir.Var:
		if !scope.has(x.Name) {
			out.Add(x.Name)
		}
	case ir.Lambda:
		freeVars(x.Body, scope.with(x.Param), out)
	case ir.Apply:
		freeVars(x.Fn, scope, out)
		freeVars(x.Arg, scope, out)
	case ir.LinearApply:
		freeVars(x.Fn, scope, out)
		freeVars(x.Arg, scope, out)
	case ir.Let:
		freeVars(x.Value, scope, out)
		freeVars(x.Body, scope.with(x.Name), out)
	case ir.Match:
		freeVars(x.Subject, scope, out)
		for _, arm := range x.Arms {
			inner := scope.with(match.PatternVariables(arm.Pattern)...)
			if arm.Guard != nil {
				freeVars(arm.Guard, inner, out)
			}
			freeVars(arm.Body, inner, out)
		}
	case ir.Tuple:
		for _, item := range x.Items {
			freeVars(item, scope, out)
		}
	case ir.List:
		for _, item := range x.Items {
			freeVars(item, scope, out)
		}
	case ir.Record:
		for _, k := range x.SortedFields() {
			freeVars(x.Fields[k], scope, out)
		}
	}
}

func occursFree(name string, e ir.Expression) bool {
	switch x := e.(type) {
	case ir.Var:
		return x.Name == name
	case ir.Lambda:
		return x.Param != name && occursFree(name, x.Body)
	case ir.Apply:
		return occursFree(name, x.Fn) || occursFree(name, x.Arg)
	case ir.LinearApply:
		return occursFree(name, x.Fn) || occursFree(name, x.Arg)
	case ir.Let:
		return occursFree(name, x.Value) || (x.Name != name && occursFree(name, x.Body))
	case ir.Match:
		if occursFree(name, x.Subject) {
			return true
		}
		for _, arm := range x.Arms {
			if armOccursFree(name, arm) {
				return true
			}
		}
		return false
	case ir.Tuple:
		return anyOccursFree(name, x.Items)
	case ir.List:
		return anyOccursFree(name, x.Items)
	case ir.Record:
		for _, f := range x.Fields {
			if occursFree(name, f) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func armOccursFree(name string, arm ir.MatchArm) bool {
	if match.Binds(arm.Pattern, name) {
		return false
	}
	return (arm.Guard != nil && occursFree(name, arm.Guard)) || occursFree(name, arm.Body)
}

func anyOccursFree(name string, es []ir.Expression) bool {
	for _, e := range es {
		if occursFree(name, e) {
			return true
		}
	}
	return false
}

// AllNames returns every name occurring in e, free or bound, including
// binders and pattern variables. Fresh names are chosen outside this set.
func AllNames(e ir.Expression) NameSet {
	out := NameSet{}
	allNames(e, out)
	return out
}

func allNames(e ir.Expression, out NameSet) {
	switch x := e.(type) {
	case ir.Var:
		out.Add(x.Name)
	case ir.Lambda:
		out.Add(x.Param)
		allNames(x.Body, out)
	case ir.Apply:
		allNames(x.Fn, out)
		allNames(x.Arg, out)
	case ir.LinearApply:
		allNames(x.Fn, out)
		allNames(x.Arg, out)
	case ir.Let:
		out.Add(x.Name)
		allNames(x.Value, out)
		allNames(x.Body, out)
	case ir.Match:
		allNames(x.Subject, out)
		for _, arm := range x.Arms {
			out.Add(match.PatternVariables(arm.Pattern)...)
			if arm.Guard != nil {
				allNames(arm.Guard, out)
			}
			allNames(arm.Body, out)
		}
	case ir.Tuple:
		for _, item := range x.Items {
			allNames(item, out)
		}
	case ir.List:
		for _, item := range x.Items {
			allNames(item, out)
		}
	case ir.Record:
		for _, f := range x.Fields {
			allNames(f, out)
		}
	}
}

// IsWellFormed reports whether e is closed.
func IsWellFormed(e ir.Expression) bool {
	return len(FreeVars(e)) == 0
}

// UnboundVariableError reports free variables in an expression that must be
// closed.
type UnboundVariableError struct {
	Names []string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("unbound variable(s): %s", strings.Join(e.Names, ", "))
}

// CheckWellFormed returns an *UnboundVariableError listing the free
// variables of e, sorted, or nil if e is closed. Names in allowed are treated
// as bound (globals such as constructor heads).
func CheckWellFormed(e ir.Expression, allowed ...string) error {
	free := FreeVars(e)
	for _, n := range allowed {
		delete(free, n)
	}
	if len(free) == 0 {
		return nil
	}
	return &UnboundVariableError{Names: free.Sorted()}
}
