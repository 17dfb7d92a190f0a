package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genesis/internal/runtime"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("rules", "", "")
	fs.String("store", "", "")
	fs.Int("max-iterations", 0, "")
	fs.Duration("timeout", 0, "")
	fs.Bool("parallel", false, "")
	fs.Int("workers", 0, "")
	fs.String("log-level", "", "")
	fs.String("log-format", "", "")
	fs.String("metrics-addr", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.String("output", "text", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "", nil)
	require.NoError(t, err)

	assert.Equal(t, runtime.DefaultMaxIterations, cfg.Runtime.MaxIterations)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Source)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, ConfigFileName, `
rules: ./rules
store: audit.db
runtime:
  max_iterations: 50
  timeout: 2s
  parallel: true
  workers: 4
log:
  format: json
metrics:
  addr: ":9090"
`)

	cfg, err := Load(dir, "", nil)
	require.NoError(t, err)

	assert.Equal(t, p, cfg.Source)
	assert.Equal(t, "./rules", cfg.Rules)
	assert.Equal(t, "audit.db", cfg.Store)
	assert.Equal(t, RuntimeConfig{MaxIterations: 50, Timeout: 2 * time.Second, Parallel: true, Workers: 4}, cfg.Runtime)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoad_AltFileName(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ConfigFileNameAlt, "store: alt.db\n")

	cfg, err := Load(dir, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "alt.db", cfg.Store)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ConfigFileName, "runtime:\n  max_iterations: 50\nstore: file.db\n")
	t.Setenv("GENESIS_RUNTIME__MAX_ITERATIONS", "7")
	t.Setenv("GENESIS_STORE", "env.db")

	cfg, err := Load(dir, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Runtime.MaxIterations)
	assert.Equal(t, "env.db", cfg.Store)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ConfigFileName, "runtime:\n  workers: 2\n")
	t.Setenv("GENESIS_RUNTIME__MAX_ITERATIONS", "7")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--max-iterations=3", "--timeout=150ms", "--parallel", "--metrics-addr=:2112"}))

	cfg, err := Load(dir, "", fs)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Runtime.MaxIterations)
	assert.Equal(t, 150*time.Millisecond, cfg.Runtime.Timeout)
	assert.True(t, cfg.Runtime.Parallel)
	assert.Equal(t, 2, cfg.Runtime.Workers, "unset flags keep lower layers")
	assert.Equal(t, ":2112", cfg.Metrics.Addr)
}

func TestLoad_UnchangedFlagsIgnored(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ConfigFileName, "store: file.db\n")

	fs := testFlags()
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(dir, "", fs)
	require.NoError(t, err)
	assert.Equal(t, "file.db", cfg.Store)
}

func TestLoad_Verbose(t *testing.T) {
	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"-v"}))

	cfg, err := Load(t.TempDir(), "", fs)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"negative iterations", "runtime:\n  max_iterations: -1\n", "runtime"},
		{"negative timeout", "runtime:\n  timeout: -1s\n", "runtime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, ConfigFileName, tt.body)
			_, err := Load(dir, "", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := LogConfig{Level: in}.SlogLevel()
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestRuntimeConfig_Engine(t *testing.T) {
	rc := RuntimeConfig{MaxIterations: 9, Timeout: time.Second, Parallel: true, Workers: 3}
	assert.Equal(t, runtime.Config{MaxIterations: 9, Timeout: time.Second, Parallel: true, Workers: 3}, rc.Engine())
}
