package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
	"github.com/roach88/genesis/internal/testutil"
)

const simplifyRules = `package simplify

name: "simplify"

_x: {kind: "var", name: "x"}

rules: {
	"add-zero": {
		priority: 2
		pattern: {kind: "constructor", name: "add", args: [{kind: "lit", value: {type: "int", value: 0}}, _x]}
		replacement: _x
	}
	unwrap: {
		pattern: {kind: "constructor", name: "wrap", args: [_x]}
		replacement: _x
	}
}
`

const leakyRules = `package leaky

rules: leak: {
	pattern: {kind: "constructor", name: "f", args: [{kind: "var", name: "x"}]}
	replacement: {kind: "var", name: "y"}
}
`

// workspace holds the files a CLI test works on.
type workspace struct {
	dir   string
	rules string
	graph string
	store string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:   dir,
		rules: filepath.Join(dir, "rules"),
		graph: filepath.Join(dir, "graph.json"),
		store: filepath.Join(dir, "audit.db"),
	}
	require.NoError(t, os.MkdirAll(ws.rules, 0o755))
	writeFile(t, filepath.Join(ws.rules, "rules.cue"), simplifyRules)

	data, err := testGraph(t).Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ws.graph, data, 0o644))
	return ws
}

// testGraph is a root plus wrap (wrap (add 0 5)), which takes three
// changing passes to reach 5.
func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	return testutil.Chain(t, ir.Int(0), testutil.App("wrap", testutil.App("wrap", testutil.App("add", ir.Int(0), ir.Int(5)))))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// decodeData parses a JSON CLIResponse and returns its data as a map.
func decodeData(t *testing.T, out string) map[string]any {
	t.Helper()
	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}
