package store

import (
	"context"
	"fmt"

	"github.com/roach88/genesis/internal/runtime"
)

// ReplayRun re-evaluates a stored run from its initial snapshot and
// compares the resulting hash chain with the stored one.
func (s *Store) ReplayRun(ctx context.Context, runID string, opts ...runtime.EngineOption) (*runtime.ReplayReport, error) {
	run, err := s.LoadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	recorded, err := s.ReadTransactions(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay run %s: %w", runID, err)
	}
	return runtime.Replay(ctx, run.Initial, run.RuleSet, run.Config, recorded, opts...)
}
