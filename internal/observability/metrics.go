package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec
	submissionsCreated *prometheus.CounterVec
	gradingDispatches  *prometheus.CounterVec
	gradingQueueDepth  prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors for the API and the
// grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codegrade_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codegrade_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codegrade_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codegrade_submissions_created_total",
			Help: "Total number of submissions accepted for grading.",
		}, []string{"type"})

		gradingDispatches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codegrade_grading_dispatches_total",
			Help: "Total number of background grading dispatches by outcome.",
		}, []string{"outcome"})

		gradingQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codegrade_grading_inflight",
			Help: "Number of grading dispatches currently in flight.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			submissionsCreated,
			gradingDispatches,
			gradingQueueDepth,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// SubmissionsCreated exposes the counter for accepted submissions.
func SubmissionsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsCreated
}

// GradingDispatches exposes the counter for background grading outcomes.
func GradingDispatches() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingDispatches
}

// GradingInflight exposes the gauge for in-flight grading dispatches.
func GradingInflight() prometheus.Gauge {
	RegisterMetrics()
	return gradingQueueDepth
}
