package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/genesis/internal/runtime"
	"github.com/roach88/genesis/internal/store"
)

// ReplayResult is the replay command's output.
type ReplayResult struct {
	RunID         string `json:"run_id"`
	Deterministic bool   `json:"deterministic"`
	Divergence    int    `json:"divergence"` // first differing transaction, -1 if none
	Recorded      int    `json:"recorded"`
	Replayed      int    `json:"replayed"`
	RecordedFinal string `json:"recorded_final_hash,omitempty"`
	ReplayedFinal string `json:"replayed_final_hash"`
}

func (r ReplayResult) String() string {
	if r.Deterministic {
		return fmt.Sprintf("✓ run %s replayed identically: %d transaction(s), final %s", r.RunID, r.Replayed, r.ReplayedFinal)
	}
	return fmt.Sprintf("✗ run %s diverged at transaction %d (recorded %d, replayed %d)", r.RunID, r.Divergence, r.Recorded, r.Replayed)
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Re-run a recorded evaluation and verify determinism",
		Long: `Replay a recorded run from its stored initial snapshot, rule set and
config, and compare the transaction hash chain with the record. Without a
run id the most recent run is replayed. The recorded timeout is ignored.

Exit codes:
  0 - Replay matched the record
  1 - Replay diverged
  2 - Command error (store or run not found)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, rootOpts, args)
		},
	}
	addStoreFlag(cmd)
	return cmd
}

func runReplay(cmd *cobra.Command, opts *RootOptions, args []string) error {
	out := opts.formatter(cmd)
	st, err := openStore(opts)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	var run store.RunRecord
	if len(args) == 1 {
		run, err = st.ReadRun(ctx, args[0])
	} else {
		run, err = st.LatestRun(ctx)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		return out.Fail(ExitCommandError, ErrCodeStore, "no such run", err)
	}
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}
	out.VerboseLog("Replaying run %s (%s, %d recorded transaction(s))", run.RunID, run.RuleSetName, run.Transactions)

	report, err := st.ReplayRun(ctx, run.RunID, runtime.WithLogger(opts.Logger))
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeEvaluate, "replay failed", err)
	}

	result := ReplayResult{
		RunID:         run.RunID,
		Deterministic: report.Match,
		Divergence:    report.Divergence,
		Recorded:      len(report.Recorded),
		Replayed:      len(report.Replayed),
		RecordedFinal: run.FinalHash,
		ReplayedFinal: report.State.FinalHash,
	}
	// a finished run must also end where the replay ends
	if run.Status.Terminal() && run.FinalHash != report.State.FinalHash {
		result.Deterministic = false
		if result.Divergence < 0 {
			result.Divergence = result.Replayed
		}
	}

	if err := out.Success(result); err != nil {
		return err
	}
	if !result.Deterministic {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s is not deterministic", run.RunID))
	}
	return nil
}
