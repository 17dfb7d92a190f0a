package ir

import (
	"fmt"
	"strconv"
)

// DecodeError reports a malformed tagged encoding.
type DecodeError struct {
	Path    string
	Message string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "decode: " + e.Message
	}
	return fmt.Sprintf("decode %s: %s", e.Path, e.Message)
}

func decodeErr(path, format string, args ...any) error {
	return &DecodeError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// DecodeExpression is the inverse of EncodeExpression.
func DecodeExpression(v IRValue) (Expression, error) {
	return decodeExpr(v, "$")
}

func decodeExpr(v IRValue, path string) (Expression, error) {
	obj, kind, err := tagged(v, path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindLit:
		lit, err := decodeLiteral(obj["value"], path+".value")
		if err != nil {
			return nil, err
		}
		return Lit{Value: lit}, nil
	case KindVar:
		name, err := stringField(obj, "name", path)
		if err != nil {
			return nil, err
		}
		return Var{Name: name}, nil
	case KindLambda:
		param, err := stringField(obj, "param", path)
		if err != nil {
			return nil, err
		}
		body, err := decodeExpr(obj["body"], path+".body")
		if err != nil {
			return nil, err
		}
		return Lambda{Param: param, Body: body}, nil
	case KindApply, KindLinearApply:
		fn, err := decodeExpr(obj["fn"], path+".fn")
		if err != nil {
			return nil, err
		}
		arg, err := decodeExpr(obj["arg"], path+".arg")
		if err != nil {
			return nil, err
		}
		if kind == KindLinearApply {
			return LinearApply{Fn: fn, Arg: arg}, nil
		}
		return Apply{Fn: fn, Arg: arg}, nil
	case KindLet:
		name, err := stringField(obj, "name", path)
		if err != nil {
			return nil, err
		}
		value, err := decodeExpr(obj["value"], path+".value")
		if err != nil {
			return nil, err
		}
		body, err := decodeExpr(obj["body"], path+".body")
		if err != nil {
			return nil, err
		}
		return Let{Name: name, Value: value, Body: body}, nil
	case KindMatch:
		subject, err := decodeExpr(obj["subject"], path+".subject")
		if err != nil {
			return nil, err
		}
		raw, err := arrayField(obj, "arms", path)
		if err != nil {
			return nil, err
		}
		arms := make([]MatchArm, len(raw))
		for i, a := range raw {
			arm, err := decodeArm(a, fmt.Sprintf("%s.arms[%d]", path, i))
			if err != nil {
				return nil, err
			}
			arms[i] = arm
		}
		return Match{Subject: subject, Arms: arms}, nil
	case KindTuple, KindList:
		raw, err := arrayField(obj, "items", path)
		if err != nil {
			return nil, err
		}
		items := make([]Expression, len(raw))
		for i, item := range raw {
			e, err := decodeExpr(item, fmt.Sprintf("%s.items[%d]", path, i))
			if err != nil {
				return nil, err
			}
			items[i] = e
		}
		if kind == KindTuple {
			return Tuple{Items: items}, nil
		}
		return List{Items: items}, nil
	case KindRecord:
		raw, ok := obj["fields"].(IRObject)
		if !ok {
			return nil, decodeErr(path, "record fields must be an object")
		}
		fields := make(map[string]Expression, len(raw))
		for _, k := range raw.SortedKeys() {
			e, err := decodeExpr(raw[k], path+".fields."+k)
			if err != nil {
				return nil, err
			}
			fields[k] = e
		}
		return Record{Fields: fields}, nil
	default:
		return nil, decodeErr(path, "unknown expression kind %q", kind)
	}
}

func decodeArm(v IRValue, path string) (MatchArm, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return MatchArm{}, decodeErr(path, "match arm must be an object")
	}
	pat, err := decodePattern(obj["pattern"], path+".pattern")
	if err != nil {
		return MatchArm{}, err
	}
	body, err := decodeExpr(obj["body"], path+".body")
	if err != nil {
		return MatchArm{}, err
	}
	arm := MatchArm{Pattern: pat, Body: body}
	if g, present := obj["guard"]; present {
		guard, err := decodeExpr(g, path+".guard")
		if err != nil {
			return MatchArm{}, err
		}
		arm.Guard = guard
	}
	return arm, nil
}

func decodeLiteral(v IRValue, path string) (Literal, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return nil, decodeErr(path, "literal must be an object")
	}
	typ, err := stringField(obj, "type", path)
	if err != nil {
		return nil, err
	}

	switch typ {
	case "int":
		n, ok := obj["value"].(IRInt)
		if !ok {
			return nil, decodeErr(path, "int literal needs an integer value")
		}
		return IntLit(n), nil
	case "float":
		s, ok := obj["value"].(IRString)
		if !ok {
			return nil, decodeErr(path, "float literal needs a decimal string value")
		}
		if _, err := strconv.ParseFloat(string(s), 64); err != nil {
			return nil, decodeErr(path, "invalid float literal %q", string(s))
		}
		return FloatLit(s), nil
	case "string":
		s, ok := obj["value"].(IRString)
		if !ok {
			return nil, decodeErr(path, "string literal needs a string value")
		}
		return StringLit(s), nil
	case "bool":
		b, ok := obj["value"].(IRBool)
		if !ok {
			return nil, decodeErr(path, "bool literal needs a boolean value")
		}
		return BoolLit(b), nil
	case "unit":
		return UnitLit{}, nil
	default:
		return nil, decodeErr(path, "unknown literal type %q", typ)
	}
}

// DecodePattern is the inverse of EncodePattern.
func DecodePattern(v IRValue) (Pattern, error) {
	return decodePattern(v, "$")
}

func decodePattern(v IRValue, path string) (Pattern, error) {
	obj, kind, err := tagged(v, path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindWildcard:
		return Wildcard{}, nil
	case KindVar:
		name, err := stringField(obj, "name", path)
		if err != nil {
			return nil, err
		}
		return PVar{Name: name}, nil
	case KindLit:
		lit, err := decodeLiteral(obj["value"], path+".value")
		if err != nil {
			return nil, err
		}
		return PLit{Value: lit}, nil
	case KindBind:
		name, err := stringField(obj, "name", path)
		if err != nil {
			return nil, err
		}
		sub, err := decodePattern(obj["pattern"], path+".pattern")
		if err != nil {
			return nil, err
		}
		return Bind{Name: name, Sub: sub}, nil
	case KindTuple, KindList:
		items, err := decodePatternList(obj, "items", path)
		if err != nil {
			return nil, err
		}
		if kind == KindTuple {
			return PTuple{Items: items}, nil
		}
		return PList{Items: items}, nil
	case KindRecord:
		raw, ok := obj["fields"].(IRObject)
		if !ok {
			return nil, decodeErr(path, "record fields must be an object")
		}
		fields := make(map[string]Pattern, len(raw))
		for _, k := range raw.SortedKeys() {
			p, err := decodePattern(raw[k], path+".fields."+k)
			if err != nil {
				return nil, err
			}
			fields[k] = p
		}
		return PRecord{Fields: fields}, nil
	case KindConstructor:
		name, err := stringField(obj, "name", path)
		if err != nil {
			return nil, err
		}
		args, err := decodePatternList(obj, "args", path)
		if err != nil {
			return nil, err
		}
		return Constructor{Name: name, Args: args}, nil
	case KindLambda:
		param, err := decodePattern(obj["param"], path+".param")
		if err != nil {
			return nil, err
		}
		body, err := decodePattern(obj["body"], path+".body")
		if err != nil {
			return nil, err
		}
		return PLambda{Param: param, Body: body}, nil
	case KindApply:
		fn, err := decodePattern(obj["fn"], path+".fn")
		if err != nil {
			return nil, err
		}
		arg, err := decodePattern(obj["arg"], path+".arg")
		if err != nil {
			return nil, err
		}
		return PApply{Fn: fn, Arg: arg}, nil
	default:
		return nil, decodeErr(path, "unknown pattern kind %q", kind)
	}
}

func decodePatternList(obj IRObject, field, path string) ([]Pattern, error) {
	raw, err := arrayField(obj, field, path)
	if err != nil {
		return nil, err
	}
	out := make([]Pattern, len(raw))
	for i, item := range raw {
		p, err := decodePattern(item, fmt.Sprintf("%s.%s[%d]", path, field, i))
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// DecodeBindings is the inverse of EncodeBindings.
func DecodeBindings(v IRValue) (Bindings, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return nil, decodeErr("$", "bindings must be an object")
	}
	b := make(Bindings, len(obj))
	for _, k := range obj.SortedKeys() {
		e, err := decodeExpr(obj[k], "$."+k)
		if err != nil {
			return nil, err
		}
		b[k] = e
	}
	return b, nil
}

func tagged(v IRValue, path string) (IRObject, string, error) {
	obj, ok := v.(IRObject)
	if !ok {
		if v == nil {
			return nil, "", decodeErr(path, "missing value")
		}
		return nil, "", decodeErr(path, "expected object, got %T", v)
	}
	kind, err := stringField(obj, "kind", path)
	if err != nil {
		return nil, "", err
	}
	return obj, kind, nil
}

func stringField(obj IRObject, field, path string) (string, error) {
	s, ok := obj[field].(IRString)
	if !ok {
		return "", decodeErr(path, "field %q must be a string", field)
	}
	return string(s), nil
}

func arrayField(obj IRObject, field, path string) (IRArray, error) {
	arr, ok := obj[field].(IRArray)
	if !ok {
		return nil, decodeErr(path, "field %q must be an array", field)
	}
	return arr, nil
}
