package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetcher.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	ItemsFetched    *prometheus.CounterVec
	PagesTotal      *prometheus.CounterVec
	CacheHitsTotal  prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_requests_total",
			Help: "Total HTTP requests issued by the report fetcher.",
		},
		[]string{"collection"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "report_request_duration_seconds",
			Help:    "HTTP request latency for report requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_items_fetched_total",
			Help: "Total number of collection records fetched.",
		},
		[]string{"collection"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_pages_fetched_total",
			Help: "Total number of collection pages fetched.",
		},
		[]string{"collection"},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "report_cache_hits_total",
			Help: "Total number of responses served from the in-memory cache.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, items, pages, cacheHits, errorsTotal)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		ItemsFetched:    items,
		PagesTotal:      pages,
		CacheHitsTotal:  cacheHits,
		ErrorsTotal:     errorsTotal,
	}
}

// IncRequest increments the requests counter for a collection.
func (m *Metrics) IncRequest(collection string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(collection).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddPage records one decoded page and its record count.
func (m *Metrics) AddPage(collection string, items int) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(collection).Inc()
	m.ItemsFetched.WithLabelValues(collection).Add(float64(items))
}

// IncCacheHit increments the cache hit counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
