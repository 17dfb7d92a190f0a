package ir

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleExpressions() map[string]Expression {
	return map[string]Expression{
		"identity_lambda": Lambda{Param: "x", Body: Var{Name: "x"}},
		"let_match": Let{
			Name:  "p",
			Value: Tuple{Items: []Expression{Int(1), Str("a")}},
			Body: Match{
				Subject: Var{Name: "p"},
				Arms: []MatchArm{
					{
						Pattern: PTuple{Items: []Pattern{PVar{Name: "a"}, Wildcard{}}},
						Guard:   Apps(Var{Name: "gt"}, Var{Name: "a"}, Int(0)),
						Body:    Var{Name: "a"},
					},
					{Pattern: Wildcard{}, Body: Unit()},
				},
			},
		},
		"record_list": Record{Fields: map[string]Expression{
			"b": List{Items: []Expression{Float(1.5), Bool(true)}},
			"a": LinearApply{Fn: Var{Name: "f"}, Arg: Var{Name: "y"}},
		}},
	}
}

func samplePatterns() map[string]Pattern {
	return map[string]Pattern{
		"constructor_pattern": Bind{
			Name: "whole",
			Sub: Constructor{Name: "Cons", Args: []Pattern{
				PVar{Name: "h"},
				PRecord{Fields: map[string]Pattern{"k": PLit{Value: IntLit(3)}}},
			}},
		},
		"shape_pattern": PLambda{
			Param: PVar{Name: "v"},
			Body:  PApply{Fn: Wildcard{}, Arg: PList{Items: []Pattern{PLit{Value: StringLit("s")}}}},
		},
	}
}

func TestMarshalExpression_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for name, e := range sampleExpressions() {
		t.Run(name, func(t *testing.T) {
			data, err := MarshalExpression(e)
			require.NoError(t, err)
			g.Assert(t, name, data)
		})
	}
}

func TestMarshalPattern_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for name, p := range samplePatterns() {
		t.Run(name, func(t *testing.T) {
			data, err := MarshalPattern(p)
			require.NoError(t, err)
			g.Assert(t, name, data)
		})
	}
}

func TestExpressionRoundTrip(t *testing.T) {
	for name, e := range sampleExpressions() {
		t.Run(name, func(t *testing.T) {
			data, err := MarshalExpression(e)
			require.NoError(t, err)

			decoded, err := UnmarshalExpression(data)
			require.NoError(t, err)
			assert.True(t, Equal(e, decoded), "decoded %s", Format(decoded))

			again, err := MarshalExpression(decoded)
			require.NoError(t, err)
			assert.Equal(t, data, again, "re-encoding must be byte-identical")
		})
	}
}

func TestPatternRoundTrip(t *testing.T) {
	for name, p := range samplePatterns() {
		t.Run(name, func(t *testing.T) {
			data, err := MarshalPattern(p)
			require.NoError(t, err)

			decoded, err := UnmarshalPattern(data)
			require.NoError(t, err)
			assert.True(t, EqualPattern(p, decoded), "decoded %s", FormatPattern(decoded))
		})
	}
}

func TestEncodeExpression_AbsentGuardOmitted(t *testing.T) {
	data, err := MarshalExpression(Match{
		Subject: Var{Name: "s"},
		Arms:    []MatchArm{{Pattern: Wildcard{}, Body: Unit()}},
	})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "guard")
}

func TestEncodeExpression_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr Expression
	}{
		{"nil", nil},
		{"nil lambda body", Lambda{Param: "x"}},
		{"nil tuple item", Tuple{Items: []Expression{Int(1), nil}}},
		{"bad float", Lit{Value: FloatLit("one")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeExpression(tt.expr)
			require.Error(t, err)
		})
	}
}

func TestDecodeExpression_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not an object", `[1]`, "expected object"},
		{"missing kind", `{"name":"x"}`, `"kind"`},
		{"unknown kind", `{"kind":"closure"}`, "unknown expression kind"},
		{"missing body", `{"kind":"lambda","param":"x"}`, "missing value"},
		{"bad literal", `{"kind":"lit","value":{"type":"int","value":"1"}}`, "int literal"},
		{"bad float", `{"kind":"lit","value":{"type":"float","value":"x"}}`, "invalid float"},
		{"arms not array", `{"kind":"match","subject":{"kind":"var","name":"s"},"arms":{}}`, `"arms"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalExpression([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var de *DecodeError
			if assert.ErrorAs(t, err, &de) {
				assert.NotEmpty(t, de.Path)
			}
		})
	}
}

func TestDecodePattern_UnknownKind(t *testing.T) {
	_, err := UnmarshalPattern([]byte(`{"kind":"let"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown pattern kind")
}

func TestBindingsRoundTrip(t *testing.T) {
	b := Bindings{"x": Int(1), "f": Lambda{Param: "y", Body: Var{Name: "y"}}}

	v, err := EncodeBindings(b)
	require.NoError(t, err)

	decoded, err := DecodeBindings(v)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, []string{"f", "x"}, decoded.SortedKeys())
	assert.True(t, Equal(b["f"], decoded["f"]))
}
