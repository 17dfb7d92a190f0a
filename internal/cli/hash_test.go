package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/rules"
)

func TestHash_Graph(t *testing.T) {
	ws := newWorkspace(t)
	want, err := testGraph(t).CanonicalHash()
	require.NoError(t, err)

	stdout, _, err := execute(t, "hash", ws.graph)
	require.NoError(t, err)
	assert.Contains(t, stdout, want)
	assert.Contains(t, stdout, "(graph, 2 node(s))")
}

func TestHash_RuleSet(t *testing.T) {
	ws := newWorkspace(t)
	rs, err := rules.LoadRuleSet(ws.rules)
	require.NoError(t, err)
	want, err := rs.Hash()
	require.NoError(t, err)

	stdout, _, err := execute(t, "hash", "--format", "json", ws.rules)
	require.NoError(t, err)
	data := decodeData(t, stdout)
	assert.Equal(t, "ruleset", data["kind"])
	assert.Equal(t, want, data["hash"])
	assert.Equal(t, "simplify", data["name"])
	assert.EqualValues(t, 2, data["count"])
}

func TestHash_Stable(t *testing.T) {
	ws := newWorkspace(t)
	a, _, err := execute(t, "hash", ws.graph)
	require.NoError(t, err)
	b, _, err := execute(t, "hash", ws.graph)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHash_MissingPath(t *testing.T) {
	_, _, err := execute(t, "hash", t.TempDir()+"/missing.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
