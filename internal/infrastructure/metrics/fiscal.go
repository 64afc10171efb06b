// Package metrics exposes fiscal core health signals to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kitanda/internal/domain/documents"
	"kitanda/internal/domain/reports/model7"
	"kitanda/internal/domain/series"
)

const namespace = "kitanda"

// Fiscal implements the observers of the series, documents and model7
// packages, plus HTTP request timing for the API middleware.
type Fiscal struct {
	numbersAllocated   *prometheus.CounterVec
	allocationFailures *prometheus.CounterVec
	documentsIssued    *prometheus.CounterVec
	documentsCancelled *prometheus.CounterVec
	reportDuration     *prometheus.HistogramVec
	httpDuration       *prometheus.HistogramVec
}

var (
	_ series.Observer    = (*Fiscal)(nil)
	_ documents.Observer = (*Fiscal)(nil)
	_ model7.Observer    = (*Fiscal)(nil)
)

// New registers the collectors with registerer (the default registerer when nil).
func New(registerer prometheus.Registerer) *Fiscal {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Fiscal{
		numbersAllocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "numbers_allocated_total",
			Help:      "Fiscal numbers handed out, by document type.",
		}, []string{"doc_type"}),
		allocationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_failures_total",
			Help:      "Refused or failed number allocations, by reason.",
		}, []string{"reason"}),
		documentsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_issued_total",
			Help:      "Documents certified, by document type.",
		}, []string{"doc_type"}),
		documentsCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_cancelled_total",
			Help:      "Documents cancelled, by document type.",
		}, []string{"doc_type"}),
		reportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model7_generation_seconds",
			Help:      "Time to compute a Modelo 7 declaration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"regime"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
	}

	registerer.MustRegister(
		m.numbersAllocated,
		m.allocationFailures,
		m.documentsIssued,
		m.documentsCancelled,
		m.reportDuration,
		m.httpDuration,
	)
	return m
}

// NumberAllocated implements series.Observer.
func (m *Fiscal) NumberAllocated(docType string) {
	m.numbersAllocated.WithLabelValues(docType).Inc()
}

// AllocationFailed implements series.Observer.
func (m *Fiscal) AllocationFailed(reason string) {
	m.allocationFailures.WithLabelValues(reason).Inc()
}

// DocumentIssued implements documents.Observer.
func (m *Fiscal) DocumentIssued(docType string) {
	m.documentsIssued.WithLabelValues(docType).Inc()
}

// DocumentCancelled implements documents.Observer.
func (m *Fiscal) DocumentCancelled(docType string) {
	m.documentsCancelled.WithLabelValues(docType).Inc()
}

// ReportGenerated implements model7.Observer.
func (m *Fiscal) ReportGenerated(regime string, elapsed time.Duration) {
	m.reportDuration.WithLabelValues(regime).Observe(elapsed.Seconds())
}

// ObserveRequest records one HTTP request. route is the gin route pattern,
// never the raw path, to keep label cardinality bounded.
func (m *Fiscal) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
