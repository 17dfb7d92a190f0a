package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transaction outcomes, the values of the "outcome" label.
const (
	outcomeCommitted = "committed"
	outcomeNoOp      = "noop"
	outcomeStale     = "stale"
	outcomeAborted   = "aborted"
)

// Metrics are the engine's Prometheus instruments.
type Metrics struct {
	iterations    prometheus.Counter
	transactions  *prometheus.CounterVec
	modifications prometheus.Counter
	candidates    prometheus.Histogram
	evaluations   *prometheus.CounterVec
	passDuration  prometheus.Histogram
}

// NewMetrics registers the engine instruments with reg. A nil reg uses a
// private registry, so several engines can coexist in one process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		iterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "genesis",
			Subsystem: "runtime",
			Name:      "iterations_total",
			Help:      "Rewrite passes started.",
		}),
		transactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genesis",
			Subsystem: "runtime",
			Name:      "transactions_total",
			Help:      "Rewrite transactions by outcome (committed, noop, stale, aborted).",
		}, []string{"outcome"}),
		modifications: f.NewCounter(prometheus.CounterOpts{
			Namespace: "genesis",
			Subsystem: "runtime",
			Name:      "modifications_total",
			Help:      "Graph modifications committed.",
		}),
		candidates: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "genesis",
			Subsystem: "runtime",
			Name:      "candidates",
			Help:      "Candidate rewrites found per scan.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genesis",
			Subsystem: "runtime",
			Name:      "evaluations_total",
			Help:      "Finished evaluations by terminal status.",
		}, []string{"status"}),
		passDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "genesis",
			Subsystem: "runtime",
			Name:      "pass_duration_seconds",
			Help:      "Wall-clock time of one scan plus transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
