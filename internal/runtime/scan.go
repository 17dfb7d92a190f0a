package runtime

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/rewrite"
)

// Scan collects candidate rewrites from every node of view. It only reads
// view and rs. The result is not sorted; rewrite.ApplyCandidates sorts.
func Scan(ctx context.Context, view *graph.View, rs *rewrite.RuleSet) ([]rewrite.Candidate, error) {
	var out []rewrite.Candidate
	for _, n := range view.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, rewrite.MatchNode(n, rs)...)
	}
	return out, nil
}

// ScanParallel is Scan split across at most workers goroutines. Each worker
// owns a contiguous range of nodes and writes only its own result slots.
func ScanParallel(ctx context.Context, view *graph.View, rs *rewrite.RuleSet, workers int) ([]rewrite.Candidate, error) {
	n := len(view.Nodes)
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return Scan(ctx, view, rs)
	}

	perNode := make([][]rewrite.Candidate, n)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		eg.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				perNode[i] = rewrite.MatchNode(view.Nodes[i], rs)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var out []rewrite.Candidate
	for _, cs := range perNode {
		out = append(out, cs...)
	}
	return out, nil
}
