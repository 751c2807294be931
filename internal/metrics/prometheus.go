package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the prior mining pipeline

var (
	// Upstream stats API metrics
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_priors_upstream_calls_total",
			Help: "Total number of stats API calls",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nba_priors_upstream_call_duration_seconds",
			Help:    "Duration of stats API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Pipeline metrics
	GamesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nba_priors_games_processed_total",
			Help: "Games processed by manifest status",
		},
		[]string{"status"},
	)

	RowsAppendedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nba_priors_raw_rows_appended_total",
			Help: "Raw team-period rows appended to the store",
		},
	)

	BatchFlushesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nba_priors_batch_flushes_total",
			Help: "Batched store flushes performed",
		},
	)

	// Line-score cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nba_priors_cache_hits_total",
			Help: "Line-score cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nba_priors_cache_misses_total",
			Help: "Line-score cache misses",
		},
	)
)
