package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/ir"
)

func TestEval_Text(t *testing.T) {
	ws := newWorkspace(t)
	out := filepath.Join(ws.dir, "final.json")

	stdout, _, err := execute(t, "eval", "--rules", ws.rules, "--out", out, ws.graph)
	require.NoError(t, err)
	assert.Contains(t, stdout, "idle after 4 iteration(s), 3 rewrite(s) in 3 transaction(s)")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	g, err := graph.Decode(data)
	require.NoError(t, err)
	var leaves []ir.Expression
	for _, n := range g.Nodes() {
		if !n.IsRoot() {
			leaves = append(leaves, n.Data)
		}
	}
	require.Len(t, leaves, 1)
	assert.True(t, ir.Equal(ir.Int(5), leaves[0]))

	h, err := g.CanonicalHash()
	require.NoError(t, err)
	assert.Contains(t, stdout, "final "+h)
}

func TestEval_JSON(t *testing.T) {
	ws := newWorkspace(t)

	stdout, _, err := execute(t, "eval", "--format", "json", "--rules", ws.rules, "--parallel", "--workers", "2", ws.graph)
	require.NoError(t, err)

	data := decodeData(t, stdout)
	assert.Equal(t, "idle", data["status"])
	assert.Equal(t, "simplify", data["ruleset"])
	assert.EqualValues(t, 4, data["iterations"])
	assert.EqualValues(t, 3, data["transactions"])
	assert.EqualValues(t, 2, data["nodes"])
	assert.NotEmpty(t, data["run_id"])
}

func TestEval_MaxIterationsFlag(t *testing.T) {
	ws := newWorkspace(t)

	stdout, _, err := execute(t, "eval", "--format", "json", "--rules", ws.rules, "--max-iterations", "2", ws.graph)
	require.NoError(t, err)

	data := decodeData(t, stdout)
	assert.Equal(t, "max_iterations_reached", data["status"])
	assert.EqualValues(t, 2, data["iterations"])
}

func TestEval_ConfigFile(t *testing.T) {
	ws := newWorkspace(t)
	cfg := filepath.Join(ws.dir, "genesis.yaml")
	writeFile(t, cfg, "rules: "+ws.rules+"\nruntime:\n  max_iterations: 1\n")

	stdout, _, err := execute(t, "eval", "--format", "json", "--config", cfg, ws.graph)
	require.NoError(t, err)
	data := decodeData(t, stdout)
	assert.Equal(t, "max_iterations_reached", data["status"])

	// flags beat the file
	stdout, _, err = execute(t, "eval", "--format", "json", "--config", cfg, "--max-iterations", "10", ws.graph)
	require.NoError(t, err)
	assert.Equal(t, "idle", decodeData(t, stdout)["status"])
}

func TestEval_Errors(t *testing.T) {
	ws := newWorkspace(t)
	bad := filepath.Join(ws.dir, "bad.json")
	writeFile(t, bad, `{"nodes": 3}`)

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"no rules", []string{"eval", ws.graph}, ExitCommandError, "no rules"},
		{"missing rules", []string{"eval", "--rules", filepath.Join(ws.dir, "nope"), ws.graph}, ExitCommandError, "failed to load rules"},
		{"missing graph", []string{"eval", "--rules", ws.rules, filepath.Join(ws.dir, "nope.json")}, ExitCommandError, "failed to read graph"},
		{"malformed graph", []string{"eval", "--rules", ws.rules, bad}, ExitCommandError, "failed to read graph"},
		{"negative workers", []string{"eval", "--rules", ws.rules, "--workers", "-1", ws.graph}, ExitCommandError, "failed to load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, err.Error()+stdout, tt.want)
		})
	}
}

func TestEval_RecordsToStore(t *testing.T) {
	ws := newWorkspace(t)

	_, _, err := execute(t, "eval", "--rules", ws.rules, "--store", ws.store, ws.graph)
	require.NoError(t, err)

	stdout, _, err := execute(t, "log", "--format", "json", "--store", ws.store)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"status":"idle"`)
	assert.Contains(t, stdout, `"transactions":3`)
}
