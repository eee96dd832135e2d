package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	importRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Import rows processed, by match outcome.",
		},
		[]string{"status"},
	)
	syncChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_chunks_total",
			Help: "Batch-update chunks submitted, by result.",
		},
		[]string{"result"},
	)
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_total",
			Help: "Background jobs finished, by kind and final state.",
		},
		[]string{"kind", "state"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(importRowsTotal)
	prometheus.MustRegister(syncChunksTotal)
	prometheus.MustRegister(jobsTotal)
}

// RecordRequest records metrics for one handled HTTP request.
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordImportRow counts one processed row by its match status.
func RecordImportRow(status string) {
	importRowsTotal.WithLabelValues(status).Inc()
}

// RecordSyncChunk counts one submitted chunk ("ok" or "failed").
func RecordSyncChunk(result string) {
	syncChunksTotal.WithLabelValues(result).Inc()
}

// RecordJob counts a finished background job.
func RecordJob(kind, state string) {
	jobsTotal.WithLabelValues(kind, state).Inc()
}

func classifyStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Handler exposes the registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
