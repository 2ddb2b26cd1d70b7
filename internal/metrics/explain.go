package metrics

import "github.com/prometheus/client_golang/prometheus"

// Explanation and chat completion Prometheus metrics.
var (
	ExplanationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propmatch",
			Name:      "explanation_requests_total",
			Help:      "Total number of explanation requests",
		},
		[]string{"mode", "status"}, // mode: "batch" / "single" / "stream"
	)

	ExplanationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propmatch",
			Name:      "explanation_cache_total",
			Help:      "Explanation cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ExplanationFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "propmatch",
			Name:      "explanation_fallbacks_total",
			Help:      "Explanation requests that fell back to hybrid-only ranking",
		},
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propmatch",
			Name:      "chat_requests_total",
			Help:      "Total number of chat completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	ChatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "propmatch",
			Name:      "chat_request_duration_seconds",
			Help:      "Chat completion request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 15, 25},
		},
		[]string{"provider", "model"},
	)

	ChatTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "propmatch",
			Name:      "chat_tokens_total",
			Help:      "Total chat completion tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)
)

var explainMetricsRegistered bool

// RegisterExplainMetrics registers Prometheus explanation metrics. Must be called once from main.
func RegisterExplainMetrics() {
	if explainMetricsRegistered {
		return
	}
	prometheus.MustRegister(ExplanationRequestsTotal)
	prometheus.MustRegister(ExplanationCacheTotal)
	prometheus.MustRegister(ExplanationFallbacksTotal)
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatRequestDuration)
	prometheus.MustRegister(ChatTokensTotal)
	explainMetricsRegistered = true
}
