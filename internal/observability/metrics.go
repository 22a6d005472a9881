package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects application metrics for the invocation path
type Metrics struct {
	// InvocationAttempts counts individual model invocation attempts by
	// model and outcome (success, transient, non_retryable)
	InvocationAttempts *prometheus.CounterVec

	// InvocationDuration observes the latency of successful invocations
	InvocationDuration *prometheus.HistogramVec

	// TokensConsumed counts prompt and completion tokens by model
	TokensConsumed *prometheus.CounterVec

	// FallbackSwitches counts how often the orchestrator moved past a
	// failed candidate model
	FallbackSwitches prometheus.Counter

	// ToolCalls counts external tool calls by tool and outcome
	ToolCalls *prometheus.CounterVec
}

// NewMetrics creates the metric collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InvocationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planning_agent",
			Name:      "invocation_attempts_total",
			Help:      "Model invocation attempts by model and outcome.",
		}, []string{"model", "outcome"}),
		InvocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "planning_agent",
			Name:      "invocation_duration_seconds",
			Help:      "Latency of successful model invocations.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"model"}),
		TokensConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planning_agent",
			Name:      "tokens_consumed_total",
			Help:      "Tokens consumed by model and token type.",
		}, []string{"model", "type"}),
		FallbackSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planning_agent",
			Name:      "fallback_switches_total",
			Help:      "Times the orchestrator fell back to the next candidate model.",
		}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planning_agent",
			Name:      "tool_calls_total",
			Help:      "External tool calls by tool name and outcome.",
		}, []string{"tool", "outcome"}),
	}

	reg.MustRegister(
		m.InvocationAttempts,
		m.InvocationDuration,
		m.TokensConsumed,
		m.FallbackSwitches,
		m.ToolCalls,
	)

	return m
}

// NewNopMetrics creates metrics backed by a throwaway registry, for tests
// and for components constructed without metrics enabled
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
