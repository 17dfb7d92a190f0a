package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/genesis/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Dir is where genesis.yaml is looked for. Empty means ".".
	Dir string

	// Config is loaded before any subcommand runs.
	Config *config.Config

	// Logger is built from Config. It writes to the command's stderr.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the genesis CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "genesis - deterministic graph rewriting",
		Long: `genesis evaluates content-addressed expression graphs against CUE rule
sets. Every pass is one atomic transaction; runs can be recorded to SQLite
and replayed to prove they are deterministic.

Settings come from genesis.yaml, GENESIS_* environment variables and flags,
in increasing priority.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			dir := opts.Dir
			if dir == "" {
				dir = "."
			}
			cfg, err := config.Load(dir, opts.ConfigFile, cmd.Flags())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.Config = cfg
			opts.Logger = newLogger(cfg.Log, cmd.ErrOrStderr())
			slog.SetDefault(opts.Logger)
			if cfg.Source != "" {
				slog.Debug("config loaded", "file", cfg.Source)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (log level debug)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./genesis.yaml)")

	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewHashCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// newLogger builds the slog handler the config asks for. Config validation
// has already rejected unknown levels and formats.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, _ := cfg.SlogLevel()
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// addStoreFlag registers --store on cmd.
func addStoreFlag(cmd *cobra.Command) {
	cmd.Flags().String("store", "", "path to the SQLite audit store")
}
