package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration records request latency for the ambient control-plane
// HTTP server (health/ready/metrics — domain routes are out of scope).
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "escalatesafe_http_request_duration_seconds",
		Help: "HTTP request latency in seconds.",
	},
	[]string{"method", "path", "status"},
)

// RunsCreatedTotal counts Run rows created, by trigger (manual/webhook).
var RunsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "escalatesafe_runs_created_total",
		Help: "Total redaction runs created.",
	},
	[]string{"trigger"},
)

// RunStateTransitionsTotal counts Run state machine transitions.
var RunStateTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "escalatesafe_run_state_transitions_total",
		Help: "Total run state machine transitions.",
	},
	[]string{"from", "to"},
)

// DetectionsTotal counts PII detections, by entity kind.
var DetectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "escalatesafe_detections_total",
		Help: "Total PII spans detected, by entity kind.",
	},
	[]string{"kind"},
)

// LeakBlockedTotal counts artifacts rejected by the leak verifier.
var LeakBlockedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "escalatesafe_leak_blocked_total",
		Help: "Total artifacts blocked by the leak verifier, by asset kind.",
	},
	[]string{"asset_kind"},
)

// ExportAttemptsTotal counts export attempts against the downstream issue
// tracker, by outcome.
var ExportAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "escalatesafe_export_attempts_total",
		Help: "Total export attempts, by outcome (success/retry/failure).",
	},
	[]string{"outcome"},
)

// OAuthRefreshTotal counts OAuth token refresh attempts, by outcome.
var OAuthRefreshTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "escalatesafe_oauth_refresh_total",
		Help: "Total upstream OAuth token refresh attempts, by outcome.",
	},
	[]string{"outcome"},
)

// AssetTasksProcessedTotal counts worker-tier asset tasks consumed from the
// queue, by asset kind and outcome.
var AssetTasksProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "escalatesafe_asset_tasks_processed_total",
		Help: "Total asset pipeline tasks processed, by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

// All returns every custom collector declared in this package, for
// registration alongside the Go/process collectors.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		RunsCreatedTotal,
		RunStateTransitionsTotal,
		DetectionsTotal,
		LeakBlockedTotal,
		ExportAttemptsTotal,
		OAuthRefreshTotal,
		AssetTasksProcessedTotal,
	}
}

// NewMetricsRegistry builds a fresh Prometheus registry with the Go/process
// collectors plus any extra collectors supplied.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
