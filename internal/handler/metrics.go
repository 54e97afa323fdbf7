package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ordersConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "despatch_service",
			Subsystem: "kafka_consumer",
			Name:      "orders_consumed_total",
			Help:      "Total number of order documents consumed successfully",
		},
	)

	ordersFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "despatch_service",
			Subsystem: "kafka_consumer",
			Name:      "orders_failed_total",
			Help:      "Total number of order documents that failed processing",
		},
	)

	ordersDLQ = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "despatch_service",
			Subsystem: "kafka_consumer",
			Name:      "orders_dlq_total",
			Help:      "Total number of order documents written to DLQ",
		},
	)

	commitErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "despatch_service",
			Subsystem: "kafka_consumer",
			Name:      "commit_errors_total",
			Help:      "Total number of Kafka commit errors",
		},
	)

	orderProcessingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "despatch_service",
			Subsystem: "kafka_consumer",
			Name:      "order_processing_duration_seconds",
			Help:      "Histogram of order document processing durations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ordersInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "despatch_service",
			Subsystem: "kafka_consumer",
			Name:      "orders_in_progress",
			Help:      "Number of order documents currently being processed",
		},
	)
)

var despatchesCreated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "despatch_service",
		Subsystem: "http",
		Name:      "despatches_created_total",
		Help:      "Total number of despatch advices assembled over HTTP",
	},
)

func RegisterMetrics() {
	prometheus.MustRegister(
		ordersConsumed,
		ordersFailed,
		ordersDLQ,
		commitErrors,
		orderProcessingDuration,
		ordersInProgress,

		despatchesCreated,
	)
}
