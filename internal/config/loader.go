package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "genesis.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "genesis.yml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// sections: GENESIS_RUNTIME__MAX_ITERATIONS sets runtime.max_iterations.
const EnvPrefix = "GENESIS_"

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"rules":          "rules",
	"store":          "store",
	"max-iterations": "runtime.max_iterations",
	"timeout":        "runtime.timeout",
	"parallel":       "runtime.parallel",
	"workers":        "runtime.workers",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"metrics-addr":   "metrics.addr",
}

// Load builds the configuration from, in increasing priority: defaults, the
// config file, GENESIS_* environment variables and flags that were
// explicitly set. explicit names the config file; when empty, genesis.yaml
// or genesis.yml in dir is used if present. flags may be nil.
func Load(dir, explicit string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"log.level":  DefaultLogLevel,
		"log.format": DefaultLogFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. config file
	path := explicit
	if path == "" {
		path = findConfigFile(dir)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. environment: GENESIS_RUNTIME__TIMEOUT -> runtime.timeout
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			if f.Name == "verbose" {
				if v, _ := flags.GetBool("verbose"); v {
					return "log.level", "debug"
				}
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Source = path
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// findConfigFile returns genesis.yaml or genesis.yml in dir, or "".
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
