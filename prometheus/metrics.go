package prometheus

import (
	"time"

	"stocksync-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Webhook ingestion metrics
	WebhookEventsTotal *prometheus.CounterVec

	// Sync operation metrics
	SyncOperationsTotal *prometheus.CounterVec

	// External storefront API metrics
	ExternalCallDuration *prometheus.HistogramVec

	// Reconciliation metrics
	ReconcileRunsTotal    *prometheus.CounterVec
	DriftCorrectionsTotal prometheus.Counter
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Webhook ingestion metrics
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_webhook_events_total",
			Help: "Total number of inbound webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	// Sync operation metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_sync_operations_total",
			Help: "Total number of sync operations by result",
		},
		[]string{"operation", "result"},
	)

	// External storefront API call duration
	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_external_call_duration_seconds",
			Help:    "Duration of storefront inventory API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	// Reconciliation metrics
	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_reconcile_runs_total",
			Help: "Total number of pull-all reconciliation runs by result",
		},
		[]string{"result"},
	)

	DriftCorrectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_drift_corrections_total",
			Help: "Total number of ledger values overwritten by reconciliation",
		},
	)
}

// RecordWebhookEvent increments the webhook outcome counter
func RecordWebhookEvent(outcome string) {
	if WebhookEventsTotal != nil {
		WebhookEventsTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordSyncOperation increments the counter for sync operations
func RecordSyncOperation(operation, result string) {
	if SyncOperationsTotal != nil {
		SyncOperationsTotal.WithLabelValues(operation, result).Inc()
	}
}

// ObserveExternalCall records the duration of one storefront API call
func ObserveExternalCall(operation, status string, startTime time.Time) {
	if ExternalCallDuration != nil {
		ExternalCallDuration.WithLabelValues(operation, status).Observe(time.Since(startTime).Seconds())
	}
}

// RecordReconcileRun increments the reconciliation run counter
func RecordReconcileRun(result string) {
	if ReconcileRunsTotal != nil {
		ReconcileRunsTotal.WithLabelValues(result).Inc()
	}
}

// RecordDriftCorrection increments the drift correction counter
func RecordDriftCorrection() {
	if DriftCorrectionsTotal != nil {
		DriftCorrectionsTotal.Inc()
	}
}
