package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name  string
		value IRValue
		want  string
	}{
		{"int", IRInt(-42), `-42`},
		{"bool", IRBool(false), `false`},
		{"empty array", IRArray{}, `[]`},
		{"empty object", IRObject{}, `{}`},
		{"sorted keys", IRObject{"name": IRString("x"), "kind": IRString("var")}, `{"kind":"var","name":"x"}`},
		{"nested keys", IRObject{"b": IRObject{"z": IRInt(1), "a": IRInt(2)}, "a": IRArray{IRInt(3)}}, `{"a":[3],"b":{"a":2,"z":1}}`},
		// U+1F600 is a surrogate pair starting at 0xD83D, before U+FFFF
		{"utf16 key order", IRObject{"\uffff": IRInt(1), "\U0001F600": IRInt(2)}, `{"😀":2,"￿":1}`},
		{"no html escaping", IRString("a<b && c>d"), `"a<b && c>d"`},
		{"control escapes", IRString("tab\tline\n\x01"), `"tab\tline\n\u0001"`},
		{"quote and backslash", IRString(`say "hi" \o/`), `"say \"hi\" \\o/"`},
		{"line separators literal", IRString("a\u2028b\u2029c"), "\"a\u2028b\u2029c\""},
		{"escaped backslash before u2028 text", IRString(`\u2028`), `"\\u2028"`},
		{"separator in key", IRObject{"k\u2028": IRBool(true)}, "{\"k\u2028\":true}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_NFC(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	a, err := MarshalCanonical(IRObject{composed: IRString(decomposed)})
	require.NoError(t, err)
	b, err := MarshalCanonical(IRObject{decomposed: IRString(composed)})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, `{"café":"café"}`, string(a))
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)

	_, err = MarshalCanonical(IRObject{"body": IRArray{IRInt(1), nil}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `value for key "body": array[1]`)
}

func TestMarshalCanonical_Idempotent(t *testing.T) {
	v := IRObject{
		"kind": IRString("record"),
		"fields": IRObject{
			"ß":  IRString("x\u2028"),
			"10": IRArray{IRBool(true), IRInt(0)},
			"9":  IRObject{},
		},
	}
	first, err := MarshalCanonical(v)
	require.NoError(t, err)

	parsed, err := UnmarshalIRValue(first)
	require.NoError(t, err)
	second, err := MarshalCanonical(parsed)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestMarshalExpression_Canonical(t *testing.T) {
	rec := Record{Fields: map[string]Expression{"b": Int(1), "a": Str("x")}}
	got, err := MarshalExpression(rec)
	require.NoError(t, err)
	assert.Equal(t,
		`{"fields":{"a":{"kind":"lit","value":{"type":"string","value":"x"}},"b":{"kind":"lit","value":{"type":"int","value":1}}},"kind":"record"}`,
		string(got))

	// names differing only by normalization encode, and so hash, the same
	a, err := MarshalExpression(Var{Name: "caf\u00e9"})
	require.NoError(t, err)
	b, err := MarshalExpression(Var{Name: "cafe\u0301"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
