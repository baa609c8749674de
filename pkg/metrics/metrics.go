package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// OrderStatusUpdates — итог смены статуса: strategy=primary|procedure|raw|none, outcome=ok|failed|not_found|rejected|invalid.
	OrderStatusUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_updates_total",
			Help: "Order status updates by final outcome and the strategy that produced it",
		},
		[]string{"strategy", "outcome"},
	)
	OrderStatusAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_update_attempts_total",
			Help: "Individual status update attempts by strategy and result",
		},
		[]string{"strategy", "result"}, // ok|error
	)
	OrderStatusAttemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_status_update_attempt_duration_seconds",
			Help:    "Latency of a single status update attempt",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
)

var (
	KafkaMessagesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Number of status commands fetched from Kafka",
		},
		[]string{"topic"},
	)
	KafkaMessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_processed_total",
			Help: "Number of status commands applied successfully",
		},
		[]string{"topic"},
	)
	KafkaMessagesFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_failed_total",
			Help: "Number of status commands failed to apply",
		},
		[]string{"topic"},
	)
)

var (
	CacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Order cache operations",
		},
		[]string{"op"}, // hit|miss|evicted|expired|deleted|stale|error
	)
	CacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_size",
			Help: "Number of orders currently in the in-memory cache",
		},
	)
)

var registerOnce sync.Once

// MustRegister — регистрирует метрики в глобальном реестре; повторные вызовы игнорируются.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			OrderStatusUpdates, OrderStatusAttempts, OrderStatusAttemptDuration,
			KafkaMessagesConsumed, KafkaMessagesProcessed, KafkaMessagesFailed,
			CacheOps, CacheSize,
		)
	})
}
