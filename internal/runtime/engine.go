package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/genesis/internal/graph"
	"github.com/roach88/genesis/internal/rewrite"
	"github.com/roach88/genesis/internal/subst"
)

var tracer = otel.Tracer("github.com/roach88/genesis/internal/runtime")

// Engine runs evaluations. An Engine may run several evaluations one after
// another; its TransactionLog accumulates all of them.
type Engine struct {
	cfg     Config
	logger  *slog.Logger
	sink    LogSink
	gen     RunIDGenerator
	gensym  *subst.Gensym
	metrics *Metrics
	log     *TransactionLog
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithLogSink persists every run and committed transaction to s.
func WithLogSink(s LogSink) EngineOption {
	return func(e *Engine) { e.sink = s }
}

// WithRunIDGenerator sets how run ids are made. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) { e.gen = g }
}

// WithGensym shares one fresh-name counter across all runs. By default
// each run starts its own counter at zero, which keeps replays identical.
func WithGensym(g *subst.Gensym) EngineOption {
	return func(e *Engine) { e.gensym = g }
}

// WithRegisterer registers the engine metrics with reg.
func WithRegisterer(reg prometheus.Registerer) EngineOption {
	return func(e *Engine) { e.metrics = NewMetrics(reg) }
}

// New returns an engine bounded by cfg.
func New(cfg Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("runtime config: %w", err)
	}
	e := &Engine{
		cfg: cfg.withDefaults(),
		gen: UUIDv7Generator{},
		log: NewTransactionLog(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Log returns the engine's transaction log.
func (e *Engine) Log() *TransactionLog {
	return e.log
}

// Evaluate rewrites g with rs until a pass changes nothing, the iteration
// cap is reached or the timeout elapses.
//
// Cancelling ctx stops the loop between passes. If the cancellation is the
// configured timeout (or any deadline) the run ends TimedOut with a nil
// error; any other cancellation is returned as an error. A rewrite abort is
// returned as an error; the graph then holds the last committed state.
func (e *Engine) Evaluate(ctx context.Context, g *graph.Graph, rs *rewrite.RuleSet) (EvaluationState, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	st := EvaluationState{RunID: e.gen.Generate(), Status: StatusRunning}
	ctx, span := tracer.Start(ctx, "runtime.evaluate", trace.WithAttributes(
		attribute.String("run_id", st.RunID),
		attribute.String("ruleset", rs.Name()),
		attribute.Bool("parallel", e.cfg.Parallel),
	))
	defer span.End()

	logger := e.logger.With("run_id", st.RunID)
	logger.Info("evaluation starting",
		"ruleset", rs.Name(),
		"rules", rs.Len(),
		"nodes", g.Len(),
		"max_iterations", e.cfg.MaxIterations,
		"parallel", e.cfg.Parallel,
	)

	if err := e.beginRun(ctx, g, rs, st.RunID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return st, err
	}

	gensym := e.gensym
	if gensym == nil {
		gensym = subst.NewGensym()
	}

	err := e.loop(ctx, logger, g, rs, gensym, &st)

	if h, herr := g.CanonicalHash(); herr == nil {
		st.FinalHash = h
	} else if err == nil {
		err = herr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("evaluation failed", "iteration", st.Iteration, "error", err)
		return st, err
	}

	e.metrics.evaluations.WithLabelValues(string(st.Status)).Inc()
	span.SetAttributes(
		attribute.String("status", string(st.Status)),
		attribute.Int("iterations", st.Iteration),
		attribute.Int("rules_fired", st.RulesFired),
	)
	logger.Info("evaluation finished",
		"status", st.Status,
		"iterations", st.Iteration,
		"rules_fired", st.RulesFired,
		"transactions", st.Transactions,
		"final_hash", st.FinalHash,
	)

	if e.sink != nil {
		// the run's result stands even if it cannot be persisted
		if err := e.sink.EndRun(context.WithoutCancel(ctx), st); err != nil {
			return st, fmt.Errorf("log sink end run: %w", err)
		}
	}
	return st, nil
}

func (e *Engine) beginRun(ctx context.Context, g *graph.Graph, rs *rewrite.RuleSet, runID string) error {
	if e.sink == nil {
		return nil
	}
	initial, err := g.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot initial graph: %w", err)
	}
	run := RunInfo{RunID: runID, RuleSet: rs, Config: e.cfg, Initial: initial}
	if err := e.sink.BeginRun(ctx, run); err != nil {
		return fmt.Errorf("log sink begin run: %w", err)
	}
	return nil
}

// loop runs passes until st reaches a terminal status or an error occurs.
func (e *Engine) loop(ctx context.Context, logger *slog.Logger, g *graph.Graph, rs *rewrite.RuleSet, gensym *subst.Gensym, st *EvaluationState) error {
	for {
		if st.Iteration >= e.cfg.MaxIterations {
			st.Status = StatusMaxIterationsReached
			return nil
		}
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				st.Status = StatusTimedOut
				return nil
			}
			return err
		}

		st.Iteration++
		e.metrics.iterations.Inc()
		start := time.Now()
		res, err := e.pass(ctx, g, rs, gensym)
		e.metrics.passDuration.Observe(time.Since(start).Seconds())

		switch {
		case errors.Is(err, rewrite.ErrStaleView):
			e.metrics.transactions.WithLabelValues(outcomeStale).Inc()
			logger.Debug("graph changed during scan, rescanning", "iteration", st.Iteration)
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// cancelled during the scan; the next check reports it
			continue
		case err != nil:
			e.metrics.transactions.WithLabelValues(outcomeAborted).Inc()
			return fmt.Errorf("iteration %d: %w", st.Iteration, err)
		}

		if res.NoOp() {
			e.metrics.transactions.WithLabelValues(outcomeNoOp).Inc()
			st.IdleStreak++
			st.Status = StatusIdle
			logger.Debug("pass changed nothing", "iteration", st.Iteration, "hash", res.PostHash)
			return nil
		}

		st.IdleStreak = 0
		st.RulesFired += res.RewritesApplied
		st.Transactions++
		e.metrics.transactions.WithLabelValues(outcomeCommitted).Inc()
		e.metrics.modifications.Add(float64(len(res.Modifications)))

		entry := e.log.Append(LogEntry{
			RunID:           st.RunID,
			Iteration:       st.Iteration,
			PreHash:         res.PreHash,
			PostHash:        res.PostHash,
			Modifications:   res.Modifications,
			RewritesApplied: res.RewritesApplied,
		})
		logger.Debug("transaction committed",
			"iteration", st.Iteration,
			"seq", entry.Seq,
			"pre_hash", res.PreHash,
			"post_hash", res.PostHash,
			"modifications", len(res.Modifications),
		)
		if e.sink != nil {
			if err := e.sink.RecordTransaction(context.WithoutCancel(ctx), entry); err != nil {
				return fmt.Errorf("log sink record seq %d: %w", entry.Seq, err)
			}
		}
	}
}

// pass scans a view of g and applies the candidates in one transaction.
func (e *Engine) pass(ctx context.Context, g *graph.Graph, rs *rewrite.RuleSet, gensym *subst.Gensym) (*rewrite.Result, error) {
	view, err := g.View()
	if err != nil {
		return nil, fmt.Errorf("view: %w", err)
	}

	var cands []rewrite.Candidate
	if e.cfg.Parallel {
		cands, err = ScanParallel(ctx, view, rs, e.cfg.Workers)
	} else {
		cands, err = Scan(ctx, view, rs)
	}
	if err != nil {
		return nil, err
	}
	e.metrics.candidates.Observe(float64(len(cands)))

	// a started transaction always finishes, so it does not see cancellation
	return rewrite.ApplyCandidates(context.WithoutCancel(ctx), g, view.Hash, rs, cands, rewrite.WithGensym(gensym))
}
