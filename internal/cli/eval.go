package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/rules"
	"github.com/roach88/genesis/internal/runtime"
	"github.com/roach88/genesis/internal/store"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions

	// Out receives the final graph's canonical encoding.
	Out string

	// RunIDs overrides the run id generator (for testing).
	RunIDs runtime.RunIDGenerator
}

// EvalResult is the eval command's output.
type EvalResult struct {
	RunID        string `json:"run_id"`
	RuleSet      string `json:"ruleset"`
	Status       string `json:"status"`
	Iterations   int    `json:"iterations"`
	RulesFired   int    `json:"rules_fired"`
	Transactions int    `json:"transactions"`
	Nodes        int    `json:"nodes"`
	FinalHash    string `json:"final_hash"`
}

func (r EvalResult) String() string {
	return fmt.Sprintf("run %s: %s after %d iteration(s), %d rewrite(s) in %d transaction(s)\nfinal %s (%d nodes)",
		r.RunID, r.Status, r.Iterations, r.RulesFired, r.Transactions, r.FinalHash, r.Nodes)
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <graph.json>",
		Short: "Rewrite a graph until it goes idle",
		Long: `Evaluate a graph against a rule set.

The graph file holds a canonical graph encoding, as written by --out. The
run ends when a pass changes nothing, at the iteration cap, or when the
timeout elapses. With --store the run and every committed transaction are
recorded for log and replay.

Exit codes:
  0 - Evaluation ended (idle, capped or timed out)
  1 - Evaluation aborted; the graph was rolled back to its last commit
  2 - Command error (bad graph, rules or store)

Examples:
  genesis eval --rules ./rules graph.json
  genesis eval --rules ./rules --store audit.db --max-iterations 50 graph.json
  genesis eval --parallel --workers 8 --metrics-addr :2112 graph.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, opts, args[0])
		},
	}

	cmd.Flags().String("rules", "", "CUE rule file or directory")
	addStoreFlag(cmd)
	cmd.Flags().Int("max-iterations", 0, "iteration cap (default 1000)")
	cmd.Flags().Duration("timeout", 0, "wall-clock budget, e.g. 30s (default none)")
	cmd.Flags().Bool("parallel", false, "scan nodes concurrently")
	cmd.Flags().Int("workers", 0, "parallel scan workers (default NumCPU)")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the final graph to this file")

	return cmd
}

func runEval(cmd *cobra.Command, opts *EvalOptions, graphPath string) error {
	out := opts.formatter(cmd)
	cfg := opts.Config

	if cfg.Rules == "" {
		return out.Fail(ExitCommandError, ErrCodeNoConfig, "no rules: pass --rules or set rules in genesis.yaml", nil)
	}
	rs, err := rules.LoadRuleSet(cfg.Rules)
	if err != nil {
		return out.Fail(ExitCommandError, loadErrCode(err), "failed to load rules", err)
	}
	out.VerboseLog("Loaded rule set %s (%d rules) from %s", rs.Name(), rs.Len(), cfg.Rules)

	g, err := readGraph(graphPath)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeBadInput, "failed to read graph", err)
	}

	engineOpts := []runtime.EngineOption{runtime.WithLogger(slog.Default())}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, runtime.WithRunIDGenerator(opts.RunIDs))
	}
	if cfg.Store != "" {
		st, err := store.Open(cfg.Store)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing store", "error", closeErr)
			}
		}()
		engineOpts = append(engineOpts, runtime.WithLogSink(st))
	}
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		ms, err := startMetricsServer(cfg.Metrics.Addr, reg)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeNoConfig, "failed to start metrics server", err)
		}
		defer ms.Close()
		engineOpts = append(engineOpts, runtime.WithRegisterer(reg))
	}

	eng, err := runtime.New(cfg.Runtime.Engine(), engineOpts...)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeNoConfig, "invalid runtime config", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := eng.Evaluate(ctx, g, rs)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			slog.Info("evaluation interrupted", "run_id", state.RunID)
		}
		return out.Fail(ExitFailure, ErrCodeEvaluate, "evaluation failed", err)
	}

	if opts.Out != "" {
		data, err := g.Encode()
		if err != nil {
			return out.Fail(ExitFailure, ErrCodeBadInput, "failed to encode final graph", err)
		}
		if err := os.WriteFile(opts.Out, data, 0o644); err != nil {
			return out.Fail(ExitCommandError, ErrCodeBadInput, "failed to write final graph", err)
		}
		out.VerboseLog("Wrote final graph to %s", opts.Out)
	}

	return out.Success(EvalResult{
		RunID:        state.RunID,
		RuleSet:      rs.Name(),
		Status:       string(state.Status),
		Iterations:   state.Iteration,
		RulesFired:   state.RulesFired,
		Transactions: state.Transactions,
		Nodes:        g.Len(),
		FinalHash:    state.FinalHash,
	})
}

func readGraph(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return graph.Decode(data)
}
