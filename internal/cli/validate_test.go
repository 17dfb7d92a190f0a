package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/rules"
)

func TestValidate_Valid(t *testing.T) {
	ws := newWorkspace(t)

	stdout, _, err := execute(t, "validate", ws.rules)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ rule set simplify is valid: 2 rule(s) in 1 file(s)")

	stdout, _, err = execute(t, "validate", "--format", "json", ws.rules)
	require.NoError(t, err)
	data := decodeData(t, stdout)
	assert.Equal(t, true, data["valid"])
	assert.EqualValues(t, 2, data["rules"])
	assert.NotEmpty(t, data["hash"])
}

func TestValidate_UnboundTemplateVariable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "leaky.cue"), leakyRules)

	stdout, _, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ 1 error(s)")
	assert.Contains(t, stdout, "["+rules.ErrCodeUnboundVar+"]")
}

func TestValidate_UnboundTemplateVariableJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "leaky.cue"), leakyRules)

	stdout, _, err := execute(t, "validate", "--format", "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	data := decodeData(t, stdout)
	assert.Equal(t, false, data["valid"])
	issues := data["errors"].([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, rules.ErrCodeUnboundVar, issues[0].(map[string]any)["code"])
}

func TestValidate_CommandErrors(t *testing.T) {
	empty := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(empty, "README"), []byte("no cue here"), 0o644))

	tests := []struct {
		name string
		path string
	}{
		{"missing path", filepath.Join(empty, "nope")},
		{"no cue files", empty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "validate", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}
