// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the ensemble orchestration server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ensemble_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ensemble_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method"},
	)

	// StrategyExecutionsTotal counts orchestrate calls by strategy and outcome.
	StrategyExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ensemble_strategy_executions_total",
			Help: "Strategy executions",
		},
		[]string{"strategy", "status"},
	)

	// StrategyDuration records full strategy execution time in seconds.
	StrategyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ensemble_strategy_duration_seconds",
			Help:    "Strategy duration",
			Buckets: LLMBuckets,
		},
		[]string{"strategy"},
	)

	// ProviderRequestsTotal counts requests sent to completion backends.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ensemble_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records backend provider latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ensemble_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens processed by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ensemble_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ContextOperationsTotal counts context store operations by kind and outcome.
	ContextOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ensemble_context_operations_total",
			Help: "Context store operations",
		},
		[]string{"operation", "status"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ensemble_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StrategyExecutionsTotal,
		StrategyDuration,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		ContextOperationsTotal,
		RateLimitRejectedTotal,
	)
}
