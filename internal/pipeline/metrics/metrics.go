package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsProcessed tracks per-item outcomes in the worker pool and backfill.
	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "categorizer_items_processed_total",
			Help: "Total number of items handled, by outcome",
		},
		[]string{"source", "outcome"},
	)

	// DuplicatesSuppressed counts deliveries skipped by the idempotency guard.
	DuplicatesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "categorizer_duplicates_suppressed_total",
			Help: "Total number of deliveries suppressed by the idempotency guard",
		},
	)

	// DeadLetterTotal counts queue items moved to the dead-letter sink.
	DeadLetterTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "categorizer_dead_letter_total",
			Help: "Total number of malformed queue items moved to the dead-letter sink",
		},
	)

	// BatchSize observes dequeued batch sizes.
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "categorizer_batch_size",
			Help:    "Number of items per dequeued batch",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		},
	)

	// CategorizeLatency observes dispatcher latency per item.
	CategorizeLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "categorizer_categorize_latency_seconds",
			Help:    "Categorization dispatcher latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// QueueDepth tracks the current length of the work queue.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "categorizer_queue_depth",
			Help: "Current length of the work queue",
		},
	)

	// StrategyHits counts which strategy produced the winning category.
	StrategyHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "categorizer_strategy_hits_total",
			Help: "Winning categorization strategy per item",
		},
		[]string{"strategy"},
	)

	// ModelRefreshes counts classifier refresh attempts.
	ModelRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "categorizer_model_refreshes_total",
			Help: "Model refresh attempts, by result",
		},
		[]string{"result"},
	)
)
