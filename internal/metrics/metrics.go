// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GRPCServerHandlingSeconds is a histogram for gRPC server request latencies
	GRPCServerHandlingSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpc_server_handling_seconds",
			Help:    "Histogram of response latency (seconds) of gRPC that had been application-level handled by the server.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "code"},
	)

	// HTTPServerHandlingSeconds is a histogram for HTTP request latencies
	HTTPServerHandlingSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_handling_seconds",
			Help:    "Histogram of response latency (seconds) of HTTP requests handled by the server.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"route", "status"},
	)

	// PreprocessLatencySeconds is a histogram for decode + resize + pack latency
	PreprocessLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "emotion_preprocess_latency_seconds",
			Help:    "Histogram of image-to-tensor preprocessing latency (seconds).",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// InferenceLatencySeconds is a histogram for inference-only latency
	InferenceLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inference_latency_seconds",
			Help:    "Histogram of inference latency (seconds) excluding transport overhead.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// PredictionsTotal counts successful predictions per label
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emotion_predictions_total",
			Help: "Total number of successful predictions by label.",
		},
		[]string{"label"},
	)

	// ErrorsTotal counts failed predictions per error code
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emotion_errors_total",
			Help: "Total number of failed predictions by error code.",
		},
		[]string{"code"},
	)

	// CacheLookupsTotal counts cache lookups by result
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emotion_cache_lookups_total",
			Help: "Total number of label cache lookups by result (hit or miss).",
		},
		[]string{"result"},
	)

	// HealthStatus is a gauge indicating the health status of the service
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "health_status",
			Help: "Health status of the service (1 = healthy, 0 = unhealthy).",
		},
	)
)

// RecordGRPCLatency records the latency of a gRPC method call
func RecordGRPCLatency(method, code string, seconds float64) {
	GRPCServerHandlingSeconds.WithLabelValues(method, code).Observe(seconds)
}

// RecordHTTPLatency records the latency of an HTTP request
func RecordHTTPLatency(route, status string, seconds float64) {
	HTTPServerHandlingSeconds.WithLabelValues(route, status).Observe(seconds)
}

// RecordPreprocessLatency records the latency of tensor preparation
func RecordPreprocessLatency(seconds float64) {
	PreprocessLatencySeconds.Observe(seconds)
}

// RecordInferenceLatency records the latency of an inference call
func RecordInferenceLatency(seconds float64) {
	InferenceLatencySeconds.Observe(seconds)
}

// RecordPrediction counts a successful prediction
func RecordPrediction(label string) {
	PredictionsTotal.WithLabelValues(label).Inc()
}

// RecordError counts a failed prediction
func RecordError(code string) {
	ErrorsTotal.WithLabelValues(code).Inc()
}

// RecordCacheLookup counts a cache hit or miss
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// SetHealthy sets the health status to healthy
func SetHealthy() {
	HealthStatus.Set(1)
}

// SetUnhealthy sets the health status to unhealthy
func SetUnhealthy() {
	HealthStatus.Set(0)
}
