package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unwrapScenario = `name: %s
rules: ../rules
graph:
  root: {kind: lit, value: {type: int, value: 0}}
  nodes:
    - name: expr
      data:
        kind: apply
        fn: {kind: var, name: wrap}
        arg: {kind: lit, value: {type: int, value: 5}}
expect:
  status: idle
  iterations: %d
assertions:
  - type: node_equals
    node: expr
    data: {kind: lit, value: {type: int, value: 5}}
  - type: replay_matches
`

// scenarioDir lays out rules/ and scenarios/ side by side and returns the
// scenarios directory.
func scenarioDir(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	ws := newWorkspace(t)
	dir := filepath.Join(ws.dir, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, body := range scenarios {
		writeFile(t, filepath.Join(dir, name), body)
	}
	return dir
}

func unwrapScenarioYAML(name string, iterations int) string {
	return fmt.Sprintf(unwrapScenario, name, iterations)
}

func TestTest_AllPass(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"a.yaml": unwrapScenarioYAML("unwrap_a", 2),
		"b.yml":  unwrapScenarioYAML("unwrap_b", 2),
	})

	stdout, _, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ unwrap_a (idle)")
	assert.Contains(t, stdout, "✓ unwrap_b (idle)")
}

func TestTest_FailureExitsOne(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"good.yaml": unwrapScenarioYAML("good", 2),
		"bad.yaml":  unwrapScenarioYAML("bad", 7),
	})

	stdout, _, err := execute(t, "test", "--format", "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	data := decodeData(t, stdout)
	assert.EqualValues(t, 2, data["total"])
	assert.EqualValues(t, 1, data["passed"])
	assert.EqualValues(t, 1, data["failed"])

	// sorted by file name: bad.yaml first
	first := data["scenarios"].([]any)[0].(map[string]any)
	assert.Equal(t, "bad", first["name"])
	assert.Equal(t, false, first["pass"])
	assert.Contains(t, first["errors"], "iterations: expected 7, got 2")
}

func TestTest_Filter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"keep.yaml": unwrapScenarioYAML("keep", 2),
		"skip.yaml": unwrapScenarioYAML("skip", 7),
	})

	stdout, _, err := execute(t, "test", "--filter", "keep*", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "keep")
	assert.NotContains(t, stdout, "skip")
}

func TestTest_InvalidScenarioFails(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"broken.yaml": "name: broken\n",
	})

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ broken.yaml")
}

func TestTest_MissingDir(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "nested/c.yaml"} {
		writeFile(t, filepath.Join(dir, name), "")
	}

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files)

	_, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)
}
