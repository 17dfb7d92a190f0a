package rules

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/rewrite"
)

//go:embed schema.cue
var schemaSrc string

// CompileError is a rule that cannot be compiled, with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// ruleSchema returns the #Rule definition in v's context.
func ruleSchema(v cue.Value) cue.Value {
	schema := v.Context().CompileString(schemaSrc, cue.Filename("schema.cue"))
	return schema.LookupPath(cue.ParsePath("#Rule"))
}

// CompileRule compiles one rule value. The rule id is the value's label.
func CompileRule(v cue.Value) (rewrite.Rule, error) {
	if err := v.Err(); err != nil {
		return rewrite.Rule{}, formatCUEError(err)
	}

	var r rewrite.Rule
	if sels := v.Path().Selectors(); len(sels) > 0 {
		r.ID = strings.Trim(sels[len(sels)-1].String(), `"`)
	}
	if r.ID == "" {
		return r, &CompileError{Field: "id", Message: "rule must be a labelled field", Pos: v.Pos()}
	}

	v = ruleSchema(v).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return r, formatCUEError(err)
	}

	var err error
	if r.Priority, err = intField(v, "priority"); err != nil {
		return r, err
	}
	if r.Disabled, err = boolField(v, "disabled"); err != nil {
		return r, err
	}
	if r.Globals, err = stringsField(v, "globals"); err != nil {
		return r, err
	}

	if r.Pattern, err = patternField(v, "pattern"); err != nil {
		return r, err
	}
	if r.Replacement, err = exprField(v, "replacement"); err != nil {
		return r, err
	}
	if gv := v.LookupPath(cue.ParsePath("guard")); gv.Exists() {
		if r.Guard, err = exprField(v, "guard"); err != nil {
			return r, err
		}
	}
	return r, nil
}

func field(v cue.Value, name string) cue.Value {
	f := v.LookupPath(cue.ParsePath(name))
	if d, ok := f.Default(); ok {
		return d
	}
	return f
}

func intField(v cue.Value, name string) (int, error) {
	n, err := field(v, name).Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

func boolField(v cue.Value, name string) (bool, error) {
	b, err := field(v, name).Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringsField(v cue.Value, name string) ([]string, error) {
	iter, err := field(v, name).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// irField converts a term field to an IRValue through its JSON form.
func irField(v cue.Value, name string) (ir.IRValue, token.Pos, error) {
	f := v.LookupPath(cue.ParsePath(name))
	data, err := f.MarshalJSON()
	if err != nil {
		return nil, f.Pos(), formatCUEError(err)
	}
	iv, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, f.Pos(), &CompileError{Field: name, Message: err.Error(), Pos: f.Pos()}
	}
	return iv, f.Pos(), nil
}

func patternField(v cue.Value, name string) (ir.Pattern, error) {
	iv, pos, err := irField(v, name)
	if err != nil {
		return nil, err
	}
	p, err := ir.DecodePattern(iv)
	if err != nil {
		return nil, &CompileError{Field: name, Message: err.Error(), Pos: pos}
	}
	return p, nil
}

func exprField(v cue.Value, name string) (ir.Expression, error) {
	iv, pos, err := irField(v, name)
	if err != nil {
		return nil, err
	}
	e, err := ir.DecodeExpression(iv)
	if err != nil {
		return nil, &CompileError{Field: name, Message: err.Error(), Pos: pos}
	}
	return e, nil
}
