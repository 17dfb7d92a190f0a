// Package match implements structural pattern matching over expressions.
//
// Matching is total and pure: it never blocks, never mutates its inputs, and
// reports absence of a match as an empty result rather than an error.
package match

import (
	"github.com/roach88/genesis/internal/ir"
)

// Match matches p against e. The result is empty when there is no match and
// holds exactly one Bindings otherwise.
//
// A variable bound twice within one match must bind structurally equal
// expressions, otherwise the whole match fails.
func Match(p ir.Pattern, e ir.Expression) ir.MatchResult {
	b := ir.Bindings{}
	if !bind(p, e, b) {
		return nil
	}
	return ir.MatchResult{b}
}

// Matches reports whether Match(p, e) would succeed. When p has no repeated
// variable it walks without building bindings.
func Matches(p ir.Pattern, e ir.Expression) bool {
	if hasRepeatedVar(p) {
		return Match(p, e).Matched()
	}
	return check(p, e)
}

// MatchAny tries patterns in order and returns the index and bindings of the
// first one that matches, or -1.
func MatchAny(e ir.Expression, patterns []ir.Pattern) (int, ir.Bindings) {
	for i, p := range patterns {
		if r := Match(p, e); r.Matched() {
			return i, r.First()
		}
	}
	return -1, nil
}

// MatchMany matches p against each expression, keeping input order.
func MatchMany(es []ir.Expression, p ir.Pattern) []ir.MatchResult {
	out := make([]ir.MatchResult, len(es))
	for i, e := range es {
		out[i] = Match(p, e)
	}
	return out
}

func bindVar(name string, e ir.Expression, b ir.Bindings) bool {
	if prev, ok := b[name]; ok {
		return ir.Equal(prev, e)
	}
	b[name] = e
	return true
}

func bind(p ir.Pattern, e ir.Expression, b ir.Bindings) bool {
	switch pat := p.(type) {
	case ir.Wildcard:
		return true
	case ir.PVar:
		return bindVar(pat.Name, e, b)
	case ir.PLit:
		lit, ok := e.(ir.Lit)
		return ok && ir.EqualLiteral(pat.Value, lit.Value)
	case ir.Bind:
		return bind(pat.Sub, e, b) && bindVar(pat.Name, e, b)
	case ir.PTuple:
		t, ok := e.(ir.Tuple)
		return ok && bindAll(pat.Items, t.Items, b)
	case ir.PList:
		l, ok := e.(ir.List)
		return ok && bindAll(pat.Items, l.Items, b)
	case ir.PRecord:
		r, ok := e.(ir.Record)
		if !ok {
			return false
		}
		for _, k := range pat.SortedFields() {
			field, present := r.Fields[k]
			if !present || !bind(pat.Fields[k], field, b) {
				return false
			}
		}
		return true
	case ir.Constructor:
		head, args := Unwind(e)
		v, ok := head.(ir.Var)
		return ok && v.Name == pat.Name && bindAll(pat.Args, args, b)
	case ir.PLambda:
		lam, ok := e.(ir.Lambda)
		return ok && bind(pat.Param, ir.Var{Name: lam.Param}, b) && bind(pat.Body, lam.Body, b)
	case ir.PApply:
		fn, arg, ok := application(e)
		return ok && bind(pat.Fn, fn, b) && bind(pat.Arg, arg, b)
	default:
		return false
	}
}

func bindAll(ps []ir.Pattern, es []ir.Expression, b ir.Bindings) bool {
	if len(ps) != len(es) {
		return false
	}
	for i := range ps {
		if !bind(ps[i], es[i], b) {
			return false
		}
	}
	return true
}

// check is bind without bindings. Only valid for linear patterns.
func check(p ir.Pattern, e ir.Expression) bool {
	switch pat := p.(type) {
	case ir.Wildcard, ir.PVar:
		return true
	case ir.PLit:
		lit, ok := e.(ir.Lit)
		return ok && ir.EqualLiteral(pat.Value, lit.Value)
	case ir.Bind:
		return check(pat.Sub, e)
	case ir.PTuple:
		t, ok := e.(ir.Tuple)
		return ok && checkAll(pat.Items, t.Items)
	case ir.PList:
		l, ok := e.(ir.List)
		return ok && checkAll(pat.Items, l.Items)
	case ir.PRecord:
		r, ok := e.(ir.Record)
		if !ok {
			return false
		}
		for k, fp := range pat.Fields {
			field, present := r.Fields[k]
			if !present || !check(fp, field) {
				return false
			}
		}
		return true
	case ir.Constructor:
		return checkConstructor(pat, e)
	case ir.PLambda:
		lam, ok := e.(ir.Lambda)
		return ok && check(pat.Param, ir.Var{Name: lam.Param}) && check(pat.Body, lam.Body)
	case ir.PApply:
		fn, arg, ok := application(e)
		return ok && check(pat.Fn, fn) && check(pat.Arg, arg)
	default:
		return false
	}
}

func checkAll(ps []ir.Pattern, es []ir.Expression) bool {
	if len(ps) != len(es) {
		return false
	}
	for i := range ps {
		if !check(ps[i], es[i]) {
			return false
		}
	}
	return true
}

// checkConstructor walks the application spine right to left so no argument
// slice is built.
func checkConstructor(pat ir.Constructor, e ir.Expression) bool {
	i := len(pat.Args) - 1
	for {
		fn, arg, ok := application(e)
		if !ok {
			v, isVar := e.(ir.Var)
			return i == -1 && isVar && v.Name == pat.Name
		}
		if i < 0 || !check(pat.Args[i], arg) {
			return false
		}
		i--
		e = fn
	}
}

// Unwind splits a left-nested chain of Apply/LinearApply into its head and
// arguments: f a b c -> (f, [a b c]). A non-application is its own head.
func Unwind(e ir.Expression) (ir.Expression, []ir.Expression) {
	var rev []ir.Expression
	for {
		fn, arg, ok := application(e)
		if !ok {
			break
		}
		rev = append(rev, arg)
		e = fn
	}
	args := make([]ir.Expression, len(rev))
	for i, a := range rev {
		args[len(rev)-1-i] = a
	}
	return e, args
}

func application(e ir.Expression) (fn, arg ir.Expression, ok bool) {
	switch x := e.(type) {
	case ir.Apply:
		return x.Fn, x.Arg, true
	case ir.LinearApply:
		return x.Fn, x.Arg, true
	}
	return nil, nil, false
}
