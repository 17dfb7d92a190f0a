package rules

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/rewrite"
)

func TestLoad_Directory(t *testing.T) {
	res, errs := Load(filepath.Join("testdata", "simplify"), LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, res.RuleSet)
	assert.Equal(t, 2, res.FileCount)

	rs := res.RuleSet
	assert.Equal(t, "simplify", rs.Name())
	var ids []string
	for _, r := range rs.Rules() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"add-zero", "double-positive", "retired", "unwrap"}, ids)

	r, ok := rs.Rule("retired")
	require.True(t, ok)
	assert.True(t, r.Disabled)

	r, ok = rs.Rule("double-positive")
	require.True(t, ok)
	assert.Equal(t, 1, r.Priority)
	assert.Equal(t, []string{"add"}, r.Globals)
	require.NotNil(t, r.Guard)
	assert.Equal(t, "gt n 0", ir.Format(r.Guard))

	r, ok = rs.Rule("unwrap")
	require.True(t, ok)
	assert.Zero(t, r.Priority)
	assert.False(t, r.Disabled)
	assert.Empty(t, r.Globals)
	assert.Nil(t, r.Guard)
}

func TestLoad_RuleSetRewrites(t *testing.T) {
	rs, err := LoadRuleSet(filepath.Join("testdata", "simplify"))
	require.NoError(t, err)

	root, err := graph.NewRoot(ir.Str("root"), graph.Metadata{})
	require.NoError(t, err)
	g, err := graph.New(root)
	require.NoError(t, err)
	pos, err := g.Derive(root.ID, ir.Apps(ir.Var{Name: "double"}, ir.Int(3)))
	require.NoError(t, err)
	neg, err := g.Derive(root.ID, ir.Apps(ir.Var{Name: "double"}, ir.Int(-3)))
	require.NoError(t, err)

	_, err = rewrite.ApplyRuleSet(context.Background(), g, rs)
	require.NoError(t, err)

	n, _ := g.Node(pos.ID)
	assert.True(t, ir.Equal(ir.Apps(ir.Var{Name: "add"}, ir.Int(3), ir.Int(3)), n.Data))
	n, _ = g.Node(neg.ID)
	assert.True(t, ir.Equal(neg.Data, n.Data), "guard blocks negative input")
}

func TestLoad_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.cue")
	writeFile(t, path, `
rules: unwrap: {
	pattern: {kind: "constructor", name: "wrap", args: [{kind: "var", name: "x"}]}
	replacement: {kind: "var", name: "x"}
}
`)
	res, errs := Load(path, LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, "tiny", res.RuleSet.Name(), "name defaults to the file name")
	assert.Equal(t, 1, res.FileCount)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		code string
	}{
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") }, ErrCodeNotFound},
		{"empty dir", func(t *testing.T) string { return t.TempDir() }, ErrCodeNoFiles},
		{"no rules", func(t *testing.T) string {
			p := filepath.Join(t.TempDir(), "x.cue")
			writeFile(t, p, `name: "x"`)
			return p
		}, ErrCodeNoRules},
		{"bad cue", func(t *testing.T) string {
			p := filepath.Join(t.TempDir(), "x.cue")
			writeFile(t, p, `rules: {`)
			return p
		}, ErrCodeLoadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, errs := Load(tt.path(t), LoadModeCollectAll)
			require.NotEmpty(t, errs)
			assertCode(t, errs[0], tt.code)
			if res != nil {
				assert.Nil(t, res.RuleSet)
			}
		})
	}
}

func TestLoad_CollectAllVersusFailFast(t *testing.T) {
	dir := filepath.Join("testdata", "broken")

	_, errs := Load(dir, LoadModeFailFast)
	require.Len(t, errs, 1)
	assertCode(t, errs[0], ErrCodeInvalidTerm)

	_, errs = Load(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)
	assertCode(t, errs[0], ErrCodeInvalidTerm)
	assertCode(t, errs[1], ErrCodeInvalidRule)

	var le *LoadError
	require.ErrorAs(t, errs[0], &le)
	assert.True(t, le.Pos.IsValid(), "compile errors carry a position")
	assert.Contains(t, le.Error(), "rules.cue")
}

func TestCompileString_UnboundVariable(t *testing.T) {
	_, errs := CompileString("leak.cue", `
rules: leak: {
	pattern: {kind: "constructor", name: "keep", args: [{kind: "var", name: "x"}]}
	replacement: {kind: "var", name: "y"}
}
`, LoadModeCollectAll)
	require.Len(t, errs, 1)
	assertCode(t, errs[0], ErrCodeUnboundVar)
	assert.ErrorContains(t, errs[0], "y")
}

func TestCompileRule_Defaults(t *testing.T) {
	v := cuecontext.New().CompileString(`
rules: "my-rule": {
	pattern: {kind: "wildcard"}
	replacement: {kind: "lit", value: {type: "bool", value: true}}
}
`)
	require.NoError(t, v.Err())

	r, err := CompileRule(v.LookupPath(cue.ParsePath(`rules."my-rule"`)))
	require.NoError(t, err)
	assert.Equal(t, "my-rule", r.ID)
	assert.Zero(t, r.Priority)
	assert.False(t, r.Disabled)
	assert.Equal(t, ir.Wildcard{}, r.Pattern)
	assert.True(t, ir.Equal(ir.Bool(true), r.Replacement))
}

func TestCompileRule_SchemaViolations(t *testing.T) {
	tests := map[string]string{
		"missing pattern":   `rules: r: replacement: {kind: "var", name: "x"}`,
		"priority type":     `rules: r: {priority: "high", pattern: {kind: "wildcard"}, replacement: {kind: "var", name: "x"}}`,
		"term without kind": `rules: r: {pattern: {name: "x"}, replacement: {kind: "var", name: "x"}}`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			v := cuecontext.New().CompileString(src)
			require.NoError(t, v.Err())
			_, err := CompileRule(v.LookupPath(cue.ParsePath("rules.r")))
			assert.Error(t, err)
		})
	}
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "pattern", Message: "bad"}
	assert.Equal(t, "pattern: bad", err.Error())
	le := &LoadError{Code: ErrCodeGeneric, Message: "boom"}
	assert.Equal(t, "E001: boom", le.Error())
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var le *LoadError
	if assert.True(t, errors.As(err, &le), "want *LoadError, got %T: %v", err, err) {
		assert.Equal(t, code, le.Code, le.Error())
	}
}
