package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	catalogFetchesTotal   *prometheus.CounterVec
	transitionsTotal      *prometheus.CounterVec
	notifierNewCount      *prometheus.GaugeVec
	inquirySubmissionsTot *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors exported on /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globalpath_http_requests_total",
			Help: "Total number of reviewer and admin API requests served.",
		}, []string{"surface", "method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "globalpath_http_latency_seconds",
			Help:    "Latency distribution for reviewer and admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"surface", "method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globalpath_http_errors_total",
			Help: "Total number of error responses returned by reviewer and admin endpoints.",
		}, []string{"surface", "method", "route", "status"})

		catalogFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globalpath_catalog_fetches_total",
			Help: "Catalog collection fetches by kind and outcome.",
		}, []string{"kind", "outcome"})

		transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globalpath_application_transitions_total",
			Help: "Application status transitions by source and target status.",
		}, []string{"from", "to"})

		notifierNewCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "globalpath_reviewer_new_applications",
			Help: "Unacknowledged new applications per reviewer.",
		}, []string{"reviewer"})

		inquirySubmissionsTot = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globalpath_inquiries_total",
			Help: "Lead-capture inquiries by interest and outcome.",
		}, []string{"interest", "outcome"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			catalogFetchesTotal,
			transitionsTotal,
			notifierNewCount,
			inquirySubmissionsTot,
		)
	})
}

// HTTPRequests exposes the request counter for instrumented surfaces.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for instrumented surfaces.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// CatalogFetches counts catalog collection refreshes.
func CatalogFetches() *prometheus.CounterVec {
	RegisterMetrics()
	return catalogFetchesTotal
}

// ApplicationTransitions counts applied lifecycle transitions.
func ApplicationTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionsTotal
}

// NotifierNewApplications tracks the badge count per reviewer.
func NotifierNewApplications() *prometheus.GaugeVec {
	RegisterMetrics()
	return notifierNewCount
}

// InquirySubmissions counts lead-capture submissions.
func InquirySubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return inquirySubmissionsTot
}
