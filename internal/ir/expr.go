package ir

import (
	"maps"
	"strconv"
)

// Expression is a node of the untyped expression language.
// Expressions are immutable values: nothing in this module rewrites one in
// place, every transformation builds a new tree.
type Expression interface {
	isExpression()
}

// Lit is a literal constant.
type Lit struct {
	Value Literal
}

// Var is a variable reference.
type Var struct {
	Name string
}

// Lambda binds Param in Body.
type Lambda struct {
	Param string
	Body  Expression
}

// Apply is function application.
type Apply struct {
	Fn  Expression
	Arg Expression
}

// LinearApply is application that consumes its argument.
// It behaves like Apply everywhere in this module.
type LinearApply struct {
	Fn  Expression
	Arg Expression
}

// Let binds Name to Value in Body. Value is not in scope of the binder.
type Let struct {
	Name  string
	Value Expression
	Body  Expression
}

// Match scrutinizes Subject against Arms in order.
type Match struct {
	Subject Expression
	Arms    []MatchArm
}

// MatchArm is one alternative of a Match. Guard may be nil.
type MatchArm struct {
	Pattern Pattern
	Guard   Expression
	Body    Expression
}

// Tuple is a fixed-arity product.
type Tuple struct {
	Items []Expression
}

// List is an ordered sequence.
type List struct {
	Items []Expression
}

// Record maps field names to expressions.
// Iterate with SortedFields for deterministic order.
type Record struct {
	Fields map[string]Expression
}

// SortedFields returns field names in canonical key order.
func (r Record) SortedFields() []string {
	return sortedKeys(r.Fields)
}

func (Lit) isExpression()         {}
func (Var) isExpression()         {}
func (Lambda) isExpression()      {}
func (Apply) isExpression()       {}
func (LinearApply) isExpression() {}
func (Let) isExpression()         {}
func (Match) isExpression()       {}
func (Tuple) isExpression()       {}
func (List) isExpression()        {}
func (Record) isExpression()      {}

// Literal is a constant value carried by Lit and PLit.
type Literal interface {
	isLiteral()
}

// IntLit is a 64-bit integer.
type IntLit int64

// FloatLit is a floating point number held as its shortest decimal text.
// Keeping the text avoids floats in canonical encodings.
type FloatLit string

// StringLit is a string.
type StringLit string

// BoolLit is a boolean.
type BoolLit bool

// UnitLit is the unit value.
type UnitLit struct{}

func (IntLit) isLiteral()    {}
func (FloatLit) isLiteral()  {}
func (StringLit) isLiteral() {}
func (BoolLit) isLiteral()   {}
func (UnitLit) isLiteral()   {}

// Constructors for literal expressions.

func Int(n int64) Expression     { return Lit{Value: IntLit(n)} }
func Str(s string) Expression    { return Lit{Value: StringLit(s)} }
func Bool(b bool) Expression     { return Lit{Value: BoolLit(b)} }
func Unit() Expression           { return Lit{Value: UnitLit{}} }
func Float(f float64) Expression { return Lit{Value: NewFloat(f)} }

// NewFloat formats f as the shortest decimal that round-trips.
func NewFloat(f float64) FloatLit {
	return FloatLit(strconv.FormatFloat(f, 'g', -1, 64))
}

// Apps builds the left-nested application chain fn a1 a2 ... an.
func Apps(fn Expression, args ...Expression) Expression {
	e := fn
	for _, a := range args {
		e = Apply{Fn: e, Arg: a}
	}
	return e
}

// NewRecord copies fields into a Record.
func NewRecord(fields map[string]Expression) Record {
	return Record{Fields: maps.Clone(fields)}
}

// Bindings maps pattern variable names to the expressions they matched.
type Bindings map[string]Expression

// SortedKeys returns binding names in canonical key order.
func (b Bindings) SortedKeys() []string {
	return sortedKeys(b)
}

// Clone returns a shallow copy. Expressions are immutable so this is enough.
func (b Bindings) Clone() Bindings {
	if b == nil {
		return Bindings{}
	}
	return maps.Clone(b)
}

// MatchResult lists the alternative binding sets of a match.
// Empty means no match; the matcher produces at most one entry.
type MatchResult []Bindings

// Matched reports whether the result holds at least one alternative.
func (r MatchResult) Matched() bool {
	return len(r) > 0
}

// First returns the first alternative, or nil if there is none.
func (r MatchResult) First() Bindings {
	if len(r) == 0 {
		return nil
	}
	return r[0]
}
