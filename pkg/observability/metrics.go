// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the dolmetsch gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by dialect, method, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dolmetsch_requests_total",
			Help: "Total requests",
		},
		[]string{"dialect", "method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by dialect.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dolmetsch_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"dialect"},
	)

	// StreamingConnections tracks the number of active streaming responses.
	// Maintained by the engine, which knows the stream flag of each request.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dolmetsch_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// BackendRequestsTotal counts calls to the backend by mapped model.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dolmetsch_backend_requests_total",
			Help: "Backend requests",
		},
		[]string{"model", "status"},
	)

	// BackendLatency records backend call latency in seconds by mapped model.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dolmetsch_backend_latency_seconds",
			Help:    "Backend latency",
			Buckets: LLMBuckets,
		},
		[]string{"model"},
	)

	// TokensTotal counts tokens processed by direction (input/output).
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dolmetsch_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dolmetsch_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		BackendRequestsTotal,
		BackendLatency,
		TokensTotal,
		RateLimitRejectedTotal,
	)
}
