package ir

import (
	"strconv"
	"strings"
)

// Format renders e in a compact human-readable syntax for logs and CLI
// output. It is not parsed back; use the canonical encoding for exchange.
//
//	\x. body   f a   let x = v in b   match s { p if g => b; ... }
//	(a, b)   [a, b]   {k: v}
func Format(e Expression) string {
	var sb strings.Builder
	writeExpr(&sb, e, false)
	return sb.String()
}

// FormatPattern renders p in the same syntax as Format.
func FormatPattern(p Pattern) string {
	var sb strings.Builder
	writePattern(&sb, p)
	return sb.String()
}

// FormatLiteral renders a literal value.
func FormatLiteral(l Literal) string {
	switch x := l.(type) {
	case IntLit:
		return strconv.FormatInt(int64(x), 10)
	case FloatLit:
		return string(x)
	case StringLit:
		return strconv.Quote(string(x))
	case BoolLit:
		return strconv.FormatBool(bool(x))
	case UnitLit:
		return "()"
	default:
		return "?"
	}
}

// writeExpr writes e; nested marks positions where an application or binder
// needs parentheses.
func writeExpr(sb *strings.Builder, e Expression, nested bool) {
	switch x := e.(type) {
	case nil:
		sb.WriteString("<nil>")
	case Lit:
		sb.WriteString(FormatLiteral(x.Value))
	case Var:
		sb.WriteString(x.Name)
	case Lambda:
		open(sb, nested)
		sb.WriteString(`\`)
		sb.WriteString(x.Param)
		sb.WriteString(". ")
		writeExpr(sb, x.Body, false)
		closeParen(sb, nested)
	case Apply:
		writeApp(sb, x.Fn, x.Arg, " ", nested)
	case LinearApply:
		writeApp(sb, x.Fn, x.Arg, " !", nested)
	case Let:
		open(sb, nested)
		sb.WriteString("let ")
		sb.WriteString(x.Name)
		sb.WriteString(" = ")
		writeExpr(sb, x.Value, false)
		sb.WriteString(" in ")
		writeExpr(sb, x.Body, false)
		closeParen(sb, nested)
	case Match:
		sb.WriteString("match ")
		writeExpr(sb, x.Subject, true)
		sb.WriteString(" {")
		for i, arm := range x.Arms {
			if i > 0 {
				sb.WriteString(";")
			}
			sb.WriteString(" ")
			writePattern(sb, arm.Pattern)
			if arm.Guard != nil {
				sb.WriteString(" if ")
				writeExpr(sb, arm.Guard, false)
			}
			sb.WriteString(" => ")
			writeExpr(sb, arm.Body, false)
		}
		sb.WriteString(" }")
	case Tuple:
		sb.WriteString("(")
		writeItems(sb, x.Items)
		if len(x.Items) == 1 {
			sb.WriteString(",")
		}
		sb.WriteString(")")
	case List:
		sb.WriteString("[")
		writeItems(sb, x.Items)
		sb.WriteString("]")
	case Record:
		sb.WriteString("{")
		for i, k := range x.SortedFields() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			writeExpr(sb, x.Fields[k], false)
		}
		sb.WriteString("}")
	}
}

func writeApp(sb *strings.Builder, fn, arg Expression, sep string, nested bool) {
	open(sb, nested)
	switch fn.(type) {
	case Apply, LinearApply:
		// left-nested chains print without inner parentheses
		writeExpr(sb, fn, false)
	default:
		writeExpr(sb, fn, true)
	}
	sb.WriteString(sep)
	writeExpr(sb, arg, true)
	closeParen(sb, nested)
}

func writeItems(sb *strings.Builder, items []Expression) {
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeExpr(sb, item, false)
	}
}

func open(sb *strings.Builder, nested bool) {
	if nested {
		sb.WriteString("(")
	}
}

func closeParen(sb *strings.Builder, nested bool) {
	if nested {
		sb.WriteString(")")
	}
}

func writePattern(sb *strings.Builder, p Pattern) {
	switch x := p.(type) {
	case nil:
		sb.WriteString("<nil>")
	case Wildcard:
		sb.WriteString("_")
	case PVar:
		sb.WriteString(x.Name)
	case PLit:
		sb.WriteString(FormatLiteral(x.Value))
	case Bind:
		sb.WriteString(x.Name)
		sb.WriteString(" @ ")
		writePattern(sb, x.Sub)
	case PTuple:
		sb.WriteString("(")
		writePatternItems(sb, x.Items)
		sb.WriteString(")")
	case PList:
		sb.WriteString("[")
		writePatternItems(sb, x.Items)
		sb.WriteString("]")
	case PRecord:
		sb.WriteString("{")
		for i, k := range x.SortedFields() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			writePattern(sb, x.Fields[k])
		}
		if len(x.Fields) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("..}")
	case Constructor:
		if len(x.Args) == 0 {
			sb.WriteString(x.Name)
			return
		}
		sb.WriteString("(")
		sb.WriteString(x.Name)
		for _, a := range x.Args {
			sb.WriteString(" ")
			writePattern(sb, a)
		}
		sb.WriteString(")")
	case PLambda:
		sb.WriteString(`(\`)
		writePattern(sb, x.Param)
		sb.WriteString(". ")
		writePattern(sb, x.Body)
		sb.WriteString(")")
	case PApply:
		sb.WriteString("(")
		writePattern(sb, x.Fn)
		sb.WriteString(" ")
		writePattern(sb, x.Arg)
		sb.WriteString(")")
	}
}

func writePatternItems(sb *strings.Builder, items []Pattern) {
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		writePattern(sb, item)
	}
}
