// Package metrics exposes the gateway's Prometheus instrumentation
// (SPEC_FULL.md section B domain stack), grounded on the pack's
// promauto usage (backend-trace-agent's internal/llm/observability.go)
// adapted from per-provider LLM call metrics to the gateway's own
// dimensions: HTTP status, task duration, and backend failover counts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts requests to the authenticated API routes by URL
	// path and resulting HTTP status text.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llm_gateway",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests to the authenticated API routes.",
		},
		[]string{"path", "status"},
	)

	// TaskDuration measures wall-clock time for a task substrate run, by
	// kind and terminal state.
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llm_gateway",
			Subsystem: "tasks",
			Name:      "duration_seconds",
			Help:      "Duration of task substrate executions.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"kind", "state"},
	)

	// BackendFailoversTotal counts failover transitions, labelled by the
	// backend failed over from.
	BackendFailoversTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llm_gateway",
			Subsystem: "llmconnector",
			Name:      "backend_failovers_total",
			Help:      "Total failover transitions away from a backend.",
		},
		[]string{"from_backend"},
	)

	// CatalogModelsGauge tracks the current model catalog size.
	CatalogModelsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "llm_gateway",
			Subsystem: "catalog",
			Name:      "models",
			Help:      "Current number of models in the catalog cache.",
		},
	)
)

// RecordRequest records one HTTP response by path and status text (the
// http.StatusText of the code, e.g. "OK").
func RecordRequest(path string, status int) {
	RequestsTotal.WithLabelValues(path, http.StatusText(status)).Inc()
}

// RecordTaskDuration records a task's total runtime, by kind and
// terminal state ("success" | "failure").
func RecordTaskDuration(kind, state string, d time.Duration) {
	TaskDuration.WithLabelValues(kind, state).Observe(d.Seconds())
}

// RecordFailover records one failover transition away from a backend.
func RecordFailover(fromBackend string) {
	BackendFailoversTotal.WithLabelValues(fromBackend).Inc()
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
