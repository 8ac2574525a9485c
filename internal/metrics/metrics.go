// Package metrics provides Prometheus metrics for ScriptFlow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "scriptflow"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Query metrics
var (
	// QueriesTotal counts executed log searches.
	QueriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "total",
			Help:      "Total log searches executed",
		},
	)

	// QueryDuration tracks log search latency.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Log search latency in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)

// Log ingest metrics
var (
	// LogsIngestedTotal counts stored log records.
	LogsIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logs",
			Name:      "ingested_total",
			Help:      "Total log records ingested",
		},
	)

	// LogIngestErrors counts failed ingest attempts.
	LogIngestErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logs",
			Name:      "ingest_errors_total",
			Help:      "Total failed log ingest attempts",
		},
	)
)

// Alert evaluation metrics
var (
	// AlertEvaluationsTotal counts alert evaluation runs.
	AlertEvaluationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "evaluations_total",
			Help:      "Total alert evaluation runs",
		},
	)

	// AlertsTriggeredTotal counts fired alerts.
	AlertsTriggeredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "triggered_total",
			Help:      "Total alerts that met their threshold",
		},
	)

	// AlertEvaluationErrors counts per-alert evaluation failures.
	AlertEvaluationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "evaluation_errors_total",
			Help:      "Total alert evaluation failures",
		},
	)

	// NotificationsSentTotal counts delivered notifications.
	NotificationsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "notifications_sent_total",
			Help:      "Total notifications delivered for triggered alerts",
		},
	)

	// NotificationErrors counts failed notification deliveries.
	NotificationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "notification_errors_total",
			Help:      "Total failed notification deliveries",
		},
	)
)
