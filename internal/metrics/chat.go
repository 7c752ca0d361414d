package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chat and pipeline Prometheus metrics.
var (
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factgpt",
			Name:      "chat_requests_total",
			Help:      "Total number of chat completion streams",
		},
		[]string{"model", "status"},
	)

	ChatStreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "factgpt",
			Name:      "chat_stream_duration_seconds",
			Help:      "Chat completion stream duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"model"},
	)

	ChatTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factgpt",
			Name:      "chat_tokens_total",
			Help:      "Total streamed completion chunks",
		},
		[]string{"model"},
	)

	ChatErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factgpt",
			Name:      "chat_errors_total",
			Help:      "Total chat provider errors",
		},
		[]string{"model", "error_type"},
	)

	PipelineDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "factgpt",
			Name:      "pipeline_documents",
			Help:      "Documents in the loaded pipeline artifact",
		},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factgpt",
			Name:      "result_cache_total",
			Help:      "Search and plot result cache hits and misses",
		},
		[]string{"op", "result"}, // op: search/plot, result: hit/miss
	)
)

var chatMetricsRegistered bool

// RegisterChatMetrics registers chat, pipeline and cache metrics. Must be called once from main.
func RegisterChatMetrics() {
	if chatMetricsRegistered {
		return
	}
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatStreamDuration)
	prometheus.MustRegister(ChatTokensTotal)
	prometheus.MustRegister(ChatErrorsTotal)
	prometheus.MustRegister(PipelineDocuments)
	prometheus.MustRegister(ResultCacheTotal)
	chatMetricsRegistered = true
}
