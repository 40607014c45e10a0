package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MatchesTotal counts successful pairwise matches by strategy (default/maximal)
var MatchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pincex_matches_total",
		Help: "Total number of order pairs matched by the engine",
	},
	[]string{"strategy"},
)

// MatchFailures counts rejected matches and batches by error kind
var MatchFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pincex_match_failures_total",
		Help: "Total number of matches or batches rejected, by error kind",
	},
	[]string{"operation", "kind"},
)

// BatchSize records the number of pairs executed per batch
var BatchSize = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "pincex_batch_pairs",
		Help:    "Number of order pairs matched per batch",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	},
)

// MatchLatency records the time spent computing and committing a match or batch
var MatchLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pincex_match_latency_seconds",
		Help:    "Latency in seconds to match and commit orders",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// Rounding observations above tolerance and elided transfers
var (
	RoundingErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pincex_rounding_errors_total",
			Help: "Derived amounts whose rounding exceeded the configured tolerance",
		},
		[]string{"side", "direction"},
	)

	ElidedTransfers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pincex_elided_transfers_total",
			Help: "Settlement transfers reported but not executed",
		},
	)
)

func init() {
	prometheus.MustRegister(MatchesTotal, MatchFailures, BatchSize, MatchLatency)
	prometheus.MustRegister(RoundingErrors, ElidedTransfers)
}
