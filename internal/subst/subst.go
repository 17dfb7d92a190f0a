// Package subst implements capture-avoiding substitution, alpha renaming and
// well-formedness checks over expressions.
//
// Ordinary substitution is total: it accepts open terms and never fails.
// Unbound variables are only reported by CheckWellFormed.
package subst

import (
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/match"
)

// Pair is one substitution var := Replacement.
type Pair struct {
	Var         string
	Replacement ir.Expression
}

// Substituter performs capture-avoiding substitution using an injected
// fresh-name counter.
type Substituter struct {
	gensym *Gensym
}

// New returns a Substituter drawing fresh names from g. A nil g gets a
// private counter.
func New(g *Gensym) *Substituter {
	if g == nil {
		g = NewGensym()
	}
	return &Substituter{gensym: g}
}

// Gensym returns the counter in use.
func (s *Substituter) Gensym() *Gensym {
	return s.gensym
}

// fresh returns a name derived from base that is not in avoid. Skipping over
// colliding counter values keeps this safe after a Reset.
func (s *Substituter) fresh(base string, avoid NameSet) string {
	for {
		name := s.gensym.Next(base)
		if !avoid.Has(name) {
			return name
		}
	}
}

// Substitute computes e[x := r]. No free variable of r is captured by a
// binder in e: colliding binders are alpha-renamed first. If x does not occur
// free in e the result is structurally equal to e.
func (s *Substituter) Substitute(e ir.Expression, x string, r ir.Expression) ir.Expression {
	if !occursFree(x, e) {
		return e
	}
	return s.subst(e, x, r, FreeVars(r))
}

func (s *Substituter) subst(e ir.Expression, x string, r ir.Expression, rFree NameSet) ir.Expression {
	if !occursFree(x, e) {
		return e
	}

	switch n := e.(type) {
	case ir.Var:
		// occursFree guarantees n.Name == x
		return r
	case ir.Lambda:
		param, body := s.underBinder(n.Param, n.Body, x, r, rFree)
		return ir.Lambda{Param: param, Body: s.subst(body, x, r, rFree)}
	case ir.Apply:
		return ir.Apply{Fn: s.subst(n.Fn, x, r, rFree), Arg: s.subst(n.Arg, x, r, rFree)}
	case ir.LinearApply:
		return ir.LinearApply{Fn: s.subst(n.Fn, x, r, rFree), Arg: s.subst(n.Arg, x, r, rFree)}
	case ir.Let:
		value := s.subst(n.Value, x, r, rFree)
		if n.Name == x || !occursFree(x, n.Body) {
			return ir.Let{Name: n.Name, Value: value, Body: n.Body}
		}
		name, body := s.underBinder(n.Name, n.Body, x, r, rFree)
		return ir.Let{Name: name, Value: value, Body: s.subst(body, x, r, rFree)}
	case ir.Match:
		arms := make([]ir.MatchArm, len(n.Arms))
		for i, arm := range n.Arms {
			arms[i] = s.substArm(arm, x, r, rFree)
		}
		return ir.Match{Subject: s.subst(n.Subject, x, r, rFree), Arms: arms}
	case ir.Tuple:
		return ir.Tuple{Items: s.substAll(n.Items, x, r, rFree)}
	case ir.List:
		return ir.List{Items: s.substAll(n.Items, x, r, rFree)}
	case ir.Record:
		fields := make(map[string]ir.Expression, len(n.Fields))
		for _, k := range n.SortedFields() {
			fields[k] = s.subst(n.Fields[k], x, r, rFree)
		}
		return ir.Record{Fields: fields}
	default:
		return e
	}
}

// underBinder returns the binder and body to substitute into, renaming the
// binder when it would capture a free variable of r. Callers have already
// checked that binder != x and that x occurs free in body.
func (s *Substituter) underBinder(binder string, body ir.Expression, x string, r ir.Expression, rFree NameSet) (string, ir.Expression) {
	if !rFree.Has(binder) {
		return binder, body
	}
	avoid := AllNames(body)
	avoid.Add(x)
	for n := range rFree {
		avoid.Add(n)
	}
	fresh := s.fresh(binder, avoid)
	return fresh, rename(body, binder, fresh)
}

func (s *Substituter) substArm(arm ir.MatchArm, x string, r ir.Expression, rFree NameSet) ir.MatchArm {
	if !armOccursFree(x, arm) {
		return arm
	}

	vars := match.PatternVariables(arm.Pattern)
	var avoid NameSet
	for _, v := range vars {
		if !rFree.Has(v) {
			continue
		}
		if avoid == nil {
			avoid = AllNames(arm.Body)
			if arm.Guard != nil {
				for n := range AllNames(arm.Guard) {
					avoid.Add(n)
				}
			}
			avoid.Add(vars...)
			avoid.Add(x)
			for n := range rFree {
				avoid.Add(n)
			}
		}
		fresh := s.fresh(v, avoid)
		avoid.Add(fresh)
		arm = ir.MatchArm{
			Pattern: renamePattern(arm.Pattern, v, fresh),
			Guard:   renameOptional(arm.Guard, v, fresh),
			Body:    rename(arm.Body, v, fresh),
		}
	}

	out := ir.MatchArm{Pattern: arm.Pattern, Body: s.subst(arm.Body, x, r, rFree)}
	if arm.Guard != nil {
		out.Guard = s.subst(arm.Guard, x, r, rFree)
	}
	return out
}

func (s *Substituter) substAll(es []ir.Expression, x string, r ir.Expression, rFree NameSet) []ir.Expression {
	out := make([]ir.Expression, len(es))
	for i, e := range es {
		out[i] = s.subst(e, x, r, rFree)
	}
	return out
}

// SubstituteMany applies each pair in input order, one full pass per pair.
// Later pairs see the result of earlier ones; this is sequential, not
// simultaneous, substitution.
func (s *Substituter) SubstituteMany(e ir.Expression, pairs []Pair) ir.Expression {
	for _, p := range pairs {
		e = s.Substitute(e, p.Var, p.Replacement)
	}
	return e
}

// AlphaRename replaces the free occurrences of binder in e with a fresh name
// and returns that name with the renamed expression.
func (s *Substituter) AlphaRename(binder string, e ir.Expression) (string, ir.Expression) {
	avoid := AllNames(e)
	avoid.Add(binder)
	fresh := s.fresh(binder, avoid)
	return fresh, rename(e, binder, fresh)
}

// Instantiate fills a rule template with match bindings. Every binding is
// first renamed to a fresh placeholder and only then replaced by its value,
// so a bound value that mentions another pattern variable's name is never
// substituted into a second time.
func (s *Substituter) Instantiate(template ir.Expression, b ir.Bindings) ir.Expression {
	names := b.SortedKeys()
	if len(names) == 0 {
		return template
	}

	avoid := AllNames(template)
	avoid.Add(names...)
	for _, v := range b {
		for n := range AllNames(v) {
			avoid.Add(n)
		}
	}

	placeholders := make([]Pair, 0, len(names))
	values := make([]Pair, 0, len(names))
	for _, name := range names {
		ph := s.fresh(name, avoid)
		avoid.Add(ph)
		placeholders = append(placeholders, Pair{Var: name, Replacement: ir.Var{Name: ph}})
		values = append(values, Pair{Var: ph, Replacement: b[name]})
	}

	return s.SubstituteMany(s.SubstituteMany(template, placeholders), values)
}

// rename replaces free occurrences of old with Var(fresh). fresh must not
// occur anywhere in e, which makes the substitution capture-free without
// further renaming.
func rename(e ir.Expression, old, fresh string) ir.Expression {
	return renamer.subst(e, old, ir.Var{Name: fresh}, NameSet{fresh: {}})
}

func renameOptional(e ir.Expression, old, fresh string) ir.Expression {
	if e == nil {
		return nil
	}
	return rename(e, old, fresh)
}

// renamer never needs fresh names: rename only substitutes a name that no
// binder in the target uses.
var renamer = &Substituter{gensym: NewGensym()}

// renamePattern renames the pattern variable old to fresh in p.
func renamePattern(p ir.Pattern, old, fresh string) ir.Pattern {
	switch x := p.(type) {
	case ir.PVar:
		if x.Name == old {
			return ir.PVar{Name: fresh}
		}
		return x
	case ir.Bind:
		name := x.Name
		if name == old {
			name = fresh
		}
		return ir.Bind{Name: name, Sub: renamePattern(x.Sub, old, fresh)}
	case ir.PTuple:
		return ir.PTuple{Items: renamePatterns(x.Items, old, fresh)}
	case ir.PList:
		return ir.PList{Items: renamePatterns(x.Items, old, fresh)}
	case ir.PRecord:
		fields := make(map[string]ir.Pattern, len(x.Fields))
		for k, f := range x.Fields {
			fields[k] = renamePattern(f, old, fresh)
		}
		return ir.PRecord{Fields: fields}
	case ir.Constructor:
		return ir.Constructor{Name: x.Name, Args: renamePatterns(x.Args, old, fresh)}
	case ir.PLambda:
		return ir.PLambda{Param: renamePattern(x.Param, old, fresh), Body: renamePattern(x.Body, old, fresh)}
	case ir.PApply:
		return ir.PApply{Fn: renamePattern(x.Fn, old, fresh), Arg: renamePattern(x.Arg, old, fresh)}
	default:
		return p
	}
}

func renamePatterns(ps []ir.Pattern, old, fresh string) []ir.Pattern {
	out := make([]ir.Pattern, len(ps))
	for i, p := range ps {
		out[i] = renamePattern(p, old, fresh)
	}
	return out
}
