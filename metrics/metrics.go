// Package metrics exposes Prometheus instrumentation for the turn loop and
// the HTTP edge. An Observer adapter feeds orchestrator events into the
// counters so instrumentation never touches the loop itself.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Turn counters
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convod",
			Subsystem: "turns",
			Name:      "total",
			Help:      "Total turns driven by the orchestrator",
		},
		[]string{"status"},
	)

	// Model round trips per turn
	RoundsPerTurn = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "convod",
			Subsystem: "turns",
			Name:      "rounds",
			Help:      "Model round trips per completed turn",
			Buckets:   []float64{1, 2, 3, 5, 8, 10, 15, 20},
		},
	)

	// Tool call counters
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convod",
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Total tool invocations",
		},
		[]string{"tool_name", "status"},
	)

	// Tool duration histogram
	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "convod",
			Subsystem: "tools",
			Name:      "duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool_name"},
	)

	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "convod",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "convod",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordTurn records a completed or failed turn.
func RecordTurn(status string, rounds int) {
	TurnsTotal.WithLabelValues(status).Inc()
	if rounds > 0 {
		RoundsPerTurn.Observe(float64(rounds))
	}
}

// RecordToolCall records one tool invocation.
func RecordToolCall(toolName, status string, durationSec float64) {
	ToolCallsTotal.WithLabelValues(toolName, status).Inc()
	ToolDuration.WithLabelValues(toolName).Observe(durationSec)
}

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}
