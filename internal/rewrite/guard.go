package rewrite

import (
	"fmt"

	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/match"
)

// Guard operators, applied as curried Apply chains: (eq a b), (not p).
const (
	OpEq  = "eq"
	OpNeq = "neq"
	OpLt  = "lt"
	OpLe  = "le"
	OpGt  = "gt"
	OpGe  = "ge"
	OpAnd = "and"
	OpOr  = "or"
	OpNot = "not"
)

var guardOperators = []string{OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe, OpAnd, OpOr, OpNot}

var operatorArity = map[string]int{
	OpEq: 2, OpNeq: 2,
	OpLt: 2, OpLe: 2, OpGt: 2, OpGe: 2,
	OpAnd: 2, OpOr: 2,
	OpNot: 1,
}

// EvalGuard reduces a closed guard to a boolean. Accepted forms are Bool
// literals and the operators above: eq and neq compare any two reduced
// expressions structurally, the ordering operators take Int literals, and
// and/or/not take booleans. Anything else is a CodeGuard error.
func EvalGuard(e ir.Expression) (bool, error) {
	return EvalGuardWith(e, nil, nil)
}

// EvalGuardWith reduces the operator spine of guard and hands every other
// operand to inst together with b. What inst returns is data: operator
// applications inside bound values are compared, never evaluated. A head
// bound in b is not an operator. A nil inst leaves operands as they are.
func EvalGuardWith(guard ir.Expression, b ir.Bindings, inst func(ir.Expression, ir.Bindings) ir.Expression) (bool, error) {
	r := reducer{bound: b, inst: inst}
	v, err := r.reduce(guard)
	if err != nil {
		return false, err
	}
	return asBool(v)
}

type reducer struct {
	bound ir.Bindings
	inst  func(ir.Expression, ir.Bindings) ir.Expression
}

func (r reducer) leaf(e ir.Expression) ir.Expression {
	if r.inst == nil {
		return e
	}
	return r.inst(e, r.bound)
}

// reduce evaluates operator applications of the template and instantiates
// all other expressions as data.
func (r reducer) reduce(e ir.Expression) (ir.Expression, error) {
	head, args := match.Unwind(e)
	op, ok := head.(ir.Var)
	if !ok || len(args) == 0 {
		return r.leaf(e), nil
	}
	arity, known := operatorArity[op.Name]
	if _, shadowed := r.bound[op.Name]; !known || shadowed {
		return r.leaf(e), nil
	}
	if len(args) != arity {
		return nil, newError(CodeGuard, "", "", "%s takes %d argument(s), got %d", op.Name, arity, len(args))
	}

	vals := make([]ir.Expression, len(args))
	for i, a := range args {
		v, err := r.reduce(a)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	switch op.Name {
	case OpEq:
		return ir.Bool(ir.Equal(vals[0], vals[1])), nil
	case OpNeq:
		return ir.Bool(!ir.Equal(vals[0], vals[1])), nil
	case OpLt, OpLe, OpGt, OpGe:
		a, err := asInt(op.Name, vals[0])
		if err != nil {
			return nil, err
		}
		b, err := asInt(op.Name, vals[1])
		if err != nil {
			return nil, err
		}
		return ir.Bool(compareInts(op.Name, a, b)), nil
	case OpNot:
		b, err := asBool(vals[0])
		if err != nil {
			return nil, err
		}
		return ir.Bool(!b), nil
	default:
		a, err := asBool(vals[0])
		if err != nil {
			return nil, err
		}
		b, err := asBool(vals[1])
		if err != nil {
			return nil, err
		}
		if op.Name == OpAnd {
			return ir.Bool(a && b), nil
		}
		return ir.Bool(a || b), nil
	}
}

func compareInts(op string, a, b int64) bool {
	switch op {
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	default:
		return a >= b
	}
}

func asBool(e ir.Expression) (bool, error) {
	if lit, ok := e.(ir.Lit); ok {
		if b, ok := lit.Value.(ir.BoolLit); ok {
			return bool(b), nil
		}
	}
	return false, newError(CodeGuard, "", "", "expected a boolean, got %s", describe(e))
}

func asInt(op string, e ir.Expression) (int64, error) {
	if lit, ok := e.(ir.Lit); ok {
		if n, ok := lit.Value.(ir.IntLit); ok {
			return int64(n), nil
		}
	}
	return 0, newError(CodeGuard, "", "", "%s expects Int operands, got %s", op, describe(e))
}

func describe(e ir.Expression) string {
	s := ir.Format(e)
	if r := []rune(s); len(r) > 60 {
		s = string(r[:57]) + "..."
	}
	return fmt.Sprintf("%q", s)
}
