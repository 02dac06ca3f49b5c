package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the turn loop
type Metrics struct {
	TurnsTotal         *prometheus.CounterVec
	TurnDuration       prometheus.Histogram
	TurnIterations     prometheus.Histogram
	ToolCallsTotal     *prometheus.CounterVec
	ToolFailuresTotal  *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	BackendErrors      prometheus.Counter
	ActiveSessions     prometheus.GaugeFunc
}

// NewMetrics registers the turn-loop instruments against the default
// registry. sessionCount is sampled on scrape.
func NewMetrics(sessionCount func() int) *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "maestro_turns_total",
			Help: "Completed conversation turns by outcome.",
		}, []string{"outcome"}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "maestro_turn_duration_seconds",
			Help:    "Wall-clock duration of a full turn.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		TurnIterations: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "maestro_turn_iterations",
			Help:    "Model round-trips taken per turn.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		ToolCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "maestro_tool_calls_total",
			Help: "Tool executions by tool name.",
		}, []string{"tool"}),
		ToolFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "maestro_tool_failures_total",
			Help: "Tool executions that returned an error payload.",
		}, []string{"tool"}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "maestro_validation_failures_total",
			Help: "Response validation failures by type.",
		}, []string{"type"}),
		BackendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "maestro_backend_errors_total",
			Help: "Chat completion requests that failed.",
		}),
		ActiveSessions: promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "maestro_active_sessions",
			Help: "Sessions currently held in memory.",
		}, func() float64 { return float64(sessionCount()) }),
	}
}
