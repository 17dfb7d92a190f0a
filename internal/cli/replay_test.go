package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_Deterministic(t *testing.T) {
	ws := newWorkspace(t)
	stdout, _, err := execute(t, "eval", "--format", "json", "--rules", ws.rules, "--store", ws.store, ws.graph)
	require.NoError(t, err)
	evalData := decodeData(t, stdout)

	stdout, _, err = execute(t, "replay", "--format", "json", "--store", ws.store)
	require.NoError(t, err)
	data := decodeData(t, stdout)
	assert.Equal(t, evalData["run_id"], data["run_id"])
	assert.Equal(t, true, data["deterministic"])
	assert.EqualValues(t, -1, data["divergence"])
	assert.EqualValues(t, 3, data["recorded"])
	assert.EqualValues(t, 3, data["replayed"])
	assert.Equal(t, evalData["final_hash"], data["replayed_final_hash"])
	assert.Equal(t, data["recorded_final_hash"], data["replayed_final_hash"])
}

func TestReplay_ByRunID(t *testing.T) {
	ws := newWorkspace(t)
	stdout, _, err := execute(t, "eval", "--format", "json", "--rules", ws.rules, "--store", ws.store, "--max-iterations", "2", ws.graph)
	require.NoError(t, err)
	first := decodeData(t, stdout)["run_id"].(string)
	_, _, err = execute(t, "eval", "--rules", ws.rules, "--store", ws.store, ws.graph)
	require.NoError(t, err)

	// the capped run replays under its own recorded config
	stdout, _, err = execute(t, "replay", "--store", ws.store, first)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ run "+first+" replayed identically: 2 transaction(s)")
}

func TestReplay_Errors(t *testing.T) {
	ws := newWorkspace(t)

	_, _, err := execute(t, "replay", "--store", ws.store)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "replay", "--store", ws.store, "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no such run")
}

func TestReplayResult_String(t *testing.T) {
	ok := ReplayResult{RunID: "r1", Deterministic: true, Divergence: -1, Recorded: 2, Replayed: 2, ReplayedFinal: "abc"}
	assert.Equal(t, "✓ run r1 replayed identically: 2 transaction(s), final abc", ok.String())

	bad := ReplayResult{RunID: "r1", Divergence: 1, Recorded: 3, Replayed: 2}
	assert.Equal(t, "✗ run r1 diverged at transaction 1 (recorded 3, replayed 2)", bad.String())
}
