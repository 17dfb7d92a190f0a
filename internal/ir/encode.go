package ir

import (
	"fmt"
	"strconv"
)

// Expression kinds in the tagged canonical encoding.
const (
	KindLit         = "lit"
	KindVar         = "var"
	KindLambda      = "lambda"
	KindApply       = "apply"
	KindLinearApply = "linear_apply"
	KindLet         = "let"
	KindMatch       = "match"
	KindTuple       = "tuple"
	KindList        = "list"
	KindRecord      = "record"
)

// Pattern kinds that have no expression counterpart.
const (
	KindWildcard    = "wildcard"
	KindBind        = "bind"
	KindConstructor = "constructor"
)

// EncodeExpression converts e into its tagged IRValue form.
// Every variant becomes an object with a "kind" field.
func EncodeExpression(e Expression) (IRValue, error) {
	switch x := e.(type) {
	case nil:
		return nil, fmt.Errorf("nil expression")
	case Lit:
		lit, err := EncodeLiteral(x.Value)
		if err != nil {
			return nil, err
		}
		return IRObject{"kind": IRString(KindLit), "value": lit}, nil
	case Var:
		return IRObject{"kind": IRString(KindVar), "name": IRString(x.Name)}, nil
	case Lambda:
		body, err := EncodeExpression(x.Body)
		if err != nil {
			return nil, fmt.Errorf("lambda body: %w", err)
		}
		return IRObject{"kind": IRString(KindLambda), "param": IRString(x.Param), "body": body}, nil
	case Apply:
		return encodeApplication(KindApply, x.Fn, x.Arg)
	case LinearApply:
		return encodeApplication(KindLinearApply, x.Fn, x.Arg)
	case Let:
		value, err := EncodeExpression(x.Value)
		if err != nil {
			return nil, fmt.Errorf("let value: %w", err)
		}
		body, err := EncodeExpression(x.Body)
		if err != nil {
			return nil, fmt.Errorf("let body: %w", err)
		}
		return IRObject{
			"kind":  IRString(KindLet),
			"name":  IRString(x.Name),
			"value": value,
			"body":  body,
		}, nil
	case Match:
		subject, err := EncodeExpression(x.Subject)
		if err != nil {
			return nil, fmt.Errorf("match subject: %w", err)
		}
		arms := make(IRArray, len(x.Arms))
		for i, arm := range x.Arms {
			a, err := encodeArm(arm)
			if err != nil {
				return nil, fmt.Errorf("match arm[%d]: %w", i, err)
			}
			arms[i] = a
		}
		return IRObject{"kind": IRString(KindMatch), "subject": subject, "arms": arms}, nil
	case Tuple:
		return encodeSequence(KindTuple, x.Items)
	case List:
		return encodeSequence(KindList, x.Items)
	case Record:
		fields := make(IRObject, len(x.Fields))
		for k, f := range x.Fields {
			v, err := EncodeExpression(f)
			if err != nil {
				return nil, fmt.Errorf("record field %q: %w", k, err)
			}
			fields[k] = v
		}
		return IRObject{"kind": IRString(KindRecord), "fields": fields}, nil
	default:
		return nil, fmt.Errorf("unknown expression type %T", e)
	}
}

func encodeApplication(kind string, fn, arg Expression) (IRValue, error) {
	f, err := EncodeExpression(fn)
	if err != nil {
		return nil, fmt.Errorf("%s fn: %w", kind, err)
	}
	a, err := EncodeExpression(arg)
	if err != nil {
		return nil, fmt.Errorf("%s arg: %w", kind, err)
	}
	return IRObject{"kind": IRString(kind), "fn": f, "arg": a}, nil
}

func encodeSequence(kind string, items []Expression) (IRValue, error) {
	arr := make(IRArray, len(items))
	for i, item := range items {
		v, err := EncodeExpression(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", kind, i, err)
		}
		arr[i] = v
	}
	return IRObject{"kind": IRString(kind), "items": arr}, nil
}

func encodeArm(arm MatchArm) (IRValue, error) {
	pat, err := EncodePattern(arm.Pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	body, err := EncodeExpression(arm.Body)
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	obj := IRObject{"pattern": pat, "body": body}
	if arm.Guard != nil {
		guard, err := EncodeExpression(arm.Guard)
		if err != nil {
			return nil, fmt.Errorf("guard: %w", err)
		}
		obj["guard"] = guard
	}
	return obj, nil
}

// EncodeLiteral converts a literal to {"type": ..., "value": ...}.
// Unit has no value field.
func EncodeLiteral(l Literal) (IRValue, error) {
	switch x := l.(type) {
	case IntLit:
		return IRObject{"type": IRString("int"), "value": IRInt(x)}, nil
	case FloatLit:
		if _, err := strconv.ParseFloat(string(x), 64); err != nil {
			return nil, fmt.Errorf("invalid float literal %q", string(x))
		}
		return IRObject{"type": IRString("float"), "value": IRString(x)}, nil
	case StringLit:
		return IRObject{"type": IRString("string"), "value": IRString(x)}, nil
	case BoolLit:
		return IRObject{"type": IRString("bool"), "value": IRBool(x)}, nil
	case UnitLit:
		return IRObject{"type": IRString("unit")}, nil
	default:
		return nil, fmt.Errorf("unknown literal type %T", l)
	}
}

// EncodePattern converts p into its tagged IRValue form.
func EncodePattern(p Pattern) (IRValue, error) {
	switch x := p.(type) {
	case nil:
		return nil, fmt.Errorf("nil pattern")
	case Wildcard:
		return IRObject{"kind": IRString(KindWildcard)}, nil
	case PVar:
		return IRObject{"kind": IRString(KindVar), "name": IRString(x.Name)}, nil
	case PLit:
		lit, err := EncodeLiteral(x.Value)
		if err != nil {
			return nil, err
		}
		return IRObject{"kind": IRString(KindLit), "value": lit}, nil
	case Bind:
		sub, err := EncodePattern(x.Sub)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", x.Name, err)
		}
		return IRObject{"kind": IRString(KindBind), "name": IRString(x.Name), "pattern": sub}, nil
	case PTuple:
		return encodePatternSequence(KindTuple, x.Items)
	case PList:
		return encodePatternSequence(KindList, x.Items)
	case PRecord:
		fields := make(IRObject, len(x.Fields))
		for k, f := range x.Fields {
			v, err := EncodePattern(f)
			if err != nil {
				return nil, fmt.Errorf("record field %q: %w", k, err)
			}
			fields[k] = v
		}
		return IRObject{"kind": IRString(KindRecord), "fields": fields}, nil
	case Constructor:
		args := make(IRArray, len(x.Args))
		for i, a := range x.Args {
			v, err := EncodePattern(a)
			if err != nil {
				return nil, fmt.Errorf("constructor %s arg[%d]: %w", x.Name, i, err)
			}
			args[i] = v
		}
		return IRObject{"kind": IRString(KindConstructor), "name": IRString(x.Name), "args": args}, nil
	case PLambda:
		param, err := EncodePattern(x.Param)
		if err != nil {
			return nil, fmt.Errorf("lambda param: %w", err)
		}
		body, err := EncodePattern(x.Body)
		if err != nil {
			return nil, fmt.Errorf("lambda body: %w", err)
		}
		return IRObject{"kind": IRString(KindLambda), "param": param, "body": body}, nil
	case PApply:
		fn, err := EncodePattern(x.Fn)
		if err != nil {
			return nil, fmt.Errorf("apply fn: %w", err)
		}
		arg, err := EncodePattern(x.Arg)
		if err != nil {
			return nil, fmt.Errorf("apply arg: %w", err)
		}
		return IRObject{"kind": IRString(KindApply), "fn": fn, "arg": arg}, nil
	default:
		return nil, fmt.Errorf("unknown pattern type %T", p)
	}
}

func encodePatternSequence(kind string, items []Pattern) (IRValue, error) {
	arr := make(IRArray, len(items))
	for i, item := range items {
		v, err := EncodePattern(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", kind, i, err)
		}
		arr[i] = v
	}
	return IRObject{"kind": IRString(kind), "items": arr}, nil
}

// EncodeBindings encodes bindings as an object keyed by variable name.
func EncodeBindings(b Bindings) (IRValue, error) {
	obj := make(IRObject, len(b))
	for k, e := range b {
		v, err := EncodeExpression(e)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", k, err)
		}
		obj[k] = v
	}
	return obj, nil
}

// EncodeMatchResult encodes every alternative in order.
func EncodeMatchResult(r MatchResult) (IRValue, error) {
	arr := make(IRArray, len(r))
	for i, b := range r {
		v, err := EncodeBindings(b)
		if err != nil {
			return nil, fmt.Errorf("alternative[%d]: %w", i, err)
		}
		arr[i] = v
	}
	return arr, nil
}

// MarshalExpression returns the canonical JSON bytes of e.
func MarshalExpression(e Expression) ([]byte, error) {
	v, err := EncodeExpression(e)
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(v)
}

// UnmarshalExpression parses canonical JSON produced by MarshalExpression.
func UnmarshalExpression(data []byte) (Expression, error) {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return nil, err
	}
	return DecodeExpression(v)
}

// MarshalPattern returns the canonical JSON bytes of p.
func MarshalPattern(p Pattern) ([]byte, error) {
	v, err := EncodePattern(p)
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(v)
}

// UnmarshalPattern parses canonical JSON produced by MarshalPattern.
func UnmarshalPattern(data []byte) (Pattern, error) {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return nil, err
	}
	return DecodePattern(v)
}
