package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortedKeys(t *testing.T) {
	tests := []struct {
		name string
		obj  IRObject
		want []string
	}{
		{"empty", IRObject{}, []string{}},
		{"node fields", IRObject{"root_ref": IRString(""), "data": IRInt(0), "metadata": IRObject{}}, []string{"data", "metadata", "root_ref"}},
		{"case", IRObject{"a": IRInt(1), "A": IRInt(2), "aA": IRInt(3), "Aa": IRInt(4)}, []string{"A", "Aa", "a", "aA"}},
		{"digits are strings", IRObject{"10": IRInt(1), "9": IRInt(2), "1": IRInt(3)}, []string{"1", "10", "9"}},
		{"surrogates before BMP tail", IRObject{"\uffff": IRInt(1), "\U0001F600": IRInt(2), "z": IRInt(3)}, []string{"z", "\U0001F600", "\uffff"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.obj.SortedKeys()
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareKeys(t *testing.T) {
	assert.Equal(t, 0, CompareKeys("kind", "kind"))
	assert.Negative(t, CompareKeys("arg", "fn"))
	assert.Positive(t, CompareKeys("kind!", "kind"))
	assert.Negative(t, CompareKeys("\U0001F600", "\uffff"))
}

func TestUnmarshalIRValue(t *testing.T) {
	got, err := UnmarshalIRValue([]byte(`{"kind":"tuple","items":[{"kind":"lit","value":{"type":"bool","value":true}},-3]}`))
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"kind": IRString("tuple"),
		"items": IRArray{
			IRObject{"kind": IRString("lit"), "value": IRObject{"type": IRString("bool"), "value": IRBool(true)}},
			IRInt(-3),
		},
	}, got)
}

func TestUnmarshalIRValue_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"float", `{"value":1.5}`, "float"},
		{"exponent", `1e3`, "float"},
		{"null", `{"value":null}`, "null"},
		{"nested null", `[1,[null]]`, "null"},
		{"trailing data", `{"a":1} {"b":2}`, "trailing"},
		{"malformed", `{"a":`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalIRValue([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestToIRValue_DecodedYAMLShapes(t *testing.T) {
	v, err := ToIRValue(map[string]any{
		"n":     7,
		"big":   uint64(9),
		"items": []any{"a", true, int64(-2)},
	})
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"n":     IRInt(7),
		"big":   IRInt(9),
		"items": IRArray{IRString("a"), IRBool(true), IRInt(-2)},
	}, v)
}

func TestToIRValue_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, "null"},
		{"float", 1.5, "float"},
		{"uint overflow", uint64(1 << 63), "range"},
		{"struct", struct{}{}, "unsupported"},
		{"nested float", []any{int64(1), 2.5}, "float"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToIRValue(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
