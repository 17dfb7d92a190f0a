package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "genesis", cmd.Use)
	assert.Contains(t, cmd.Long, "GENESIS_")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"eval", "hash", "log", "validate", "replay", "test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestEvalCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	eval, _, err := cmd.Find([]string{"eval"})
	require.NoError(t, err)

	for _, name := range []string{"rules", "store", "max-iterations", "timeout", "parallel", "workers", "metrics-addr", "out"} {
		assert.NotNil(t, eval.Flags().Lookup(name), name)
	}
	assert.Equal(t, "o", eval.Flags().Lookup("out").Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	ws := newWorkspace(t)
	_, _, err := execute(t, "hash", "--format", "yaml", ws.graph)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestInvalidConfig(t *testing.T) {
	ws := newWorkspace(t)
	cfg := ws.dir + "/genesis.yaml"
	writeFile(t, cfg, "log:\n  level: shouty\n")

	_, _, err := execute(t, "hash", "--config", cfg, ws.graph)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
