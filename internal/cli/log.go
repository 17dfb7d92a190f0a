package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/genesis/internal/rewrite"
	"github.com/roach88/genesis/internal/store"
)

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID        string `json:"run_id"`
	RuleSet      string `json:"ruleset"`
	Status       string `json:"status"`
	Iterations   int    `json:"iterations"`
	RulesFired   int    `json:"rules_fired"`
	Transactions int    `json:"transactions"`
	FinalHash    string `json:"final_hash,omitempty"`
}

// TransactionSummary is one committed transaction of a run.
type TransactionSummary struct {
	Seq             int64          `json:"seq"`
	Iteration       int            `json:"iteration"`
	PreHash         string         `json:"pre_hash"`
	PostHash        string         `json:"post_hash"`
	RewritesApplied int            `json:"rewrites_applied"`
	Modifications   map[string]int `json:"modifications"`
}

// RunLog is the detailed view of one run.
type RunLog struct {
	Run          RunSummary           `json:"run"`
	Transactions []TransactionSummary `json:"transactions"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [run-id]",
		Short: "Show recorded runs and their transactions",
		Long: `Without arguments, list every run in the store. With a run id, show that
run's committed transactions in order.

Examples:
  genesis log --store audit.db
  genesis log --store audit.db 0192f0c4-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd, rootOpts, args)
		},
	}
	addStoreFlag(cmd)
	return cmd
}

func runLog(cmd *cobra.Command, opts *RootOptions, args []string) error {
	out := opts.formatter(cmd)
	st, err := openStore(opts)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStore, "failed to open store", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if len(args) == 0 {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		summaries := make([]RunSummary, 0, len(runs))
		for _, r := range runs {
			summaries = append(summaries, summarizeRun(r))
		}
		if opts.Format == "json" {
			return out.Success(summaries)
		}
		if len(summaries) == 0 {
			fmt.Fprintln(out.Writer, "No runs recorded.")
			return nil
		}
		for _, s := range summaries {
			fmt.Fprintf(out.Writer, "%s  %-22s %-12s iterations=%d rewrites=%d transactions=%d\n",
				s.RunID, s.Status, s.RuleSet, s.Iterations, s.RulesFired, s.Transactions)
		}
		return nil
	}

	run, err := st.ReadRun(ctx, args[0])
	if errors.Is(err, store.ErrRunNotFound) {
		return out.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("run %s not found", args[0]), nil)
	}
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}
	entries, err := st.ReadTransactions(ctx, run.RunID)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStore, "failed to read transactions", err)
	}

	rl := RunLog{Run: summarizeRun(run), Transactions: make([]TransactionSummary, 0, len(entries))}
	for _, e := range entries {
		kinds := make(map[string]int)
		for _, m := range e.Modifications {
			kinds[string(m.Kind())]++
		}
		rl.Transactions = append(rl.Transactions, TransactionSummary{
			Seq:             e.Seq,
			Iteration:       e.Iteration,
			PreHash:         e.PreHash,
			PostHash:        e.PostHash,
			RewritesApplied: e.RewritesApplied,
			Modifications:   kinds,
		})
	}
	if opts.Format == "json" {
		return out.Success(rl)
	}

	fmt.Fprintf(out.Writer, "run %s (%s): %s after %d iteration(s)\n", rl.Run.RunID, rl.Run.RuleSet, rl.Run.Status, rl.Run.Iterations)
	for _, tx := range rl.Transactions {
		fmt.Fprintf(out.Writer, "  #%d iter %d  %s -> %s  %s\n",
			tx.Seq, tx.Iteration, shortHash(tx.PreHash), shortHash(tx.PostHash), describeKinds(tx.Modifications))
	}
	return nil
}

func openStore(opts *RootOptions) (*store.Store, error) {
	if opts.Config.Store == "" {
		return nil, errors.New("no store: pass --store or set store in genesis.yaml")
	}
	return store.Open(opts.Config.Store)
}

func summarizeRun(r store.RunRecord) RunSummary {
	return RunSummary{
		RunID:        r.RunID,
		RuleSet:      r.RuleSetName,
		Status:       string(r.Status),
		Iterations:   r.Iterations,
		RulesFired:   r.RulesFired,
		Transactions: r.Transactions,
		FinalHash:    r.FinalHash,
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// describeKinds renders modification counts in a fixed kind order.
func describeKinds(kinds map[string]int) string {
	var parts []string
	for _, k := range []rewrite.ModificationKind{
		rewrite.KindNodeUpdated, rewrite.KindNodeAdded, rewrite.KindNodeRemoved,
		rewrite.KindEdgeAdded, rewrite.KindEdgeRemoved,
	} {
		if n := kinds[string(k)]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, n))
		}
	}
	return strings.Join(parts, " ")
}
