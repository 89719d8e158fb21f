// Package metrics exposes Prometheus collectors for the ranking engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/poiesic/jobfeed/adaptation"
	"github.com/poiesic/jobfeed/discovery"
	"github.com/poiesic/jobfeed/retrieval"
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricRetrievalsTotal     = "jobfeed_retrievals_total"
	MetricRetrievalPoolSize   = "jobfeed_retrieval_pool_size"
	MetricRetrievalFallbacks  = "jobfeed_retrieval_fallbacks_total"
	MetricDiscoverDuration    = "jobfeed_discover_duration_seconds"
	MetricDiscoverItems       = "jobfeed_discover_items"
	MetricRequestErrorsTotal  = "jobfeed_request_errors_total"
	MetricInteractionsTotal   = "jobfeed_interactions_total"
	MetricRecomputesTotal     = "jobfeed_profile_recomputes_total"
	MetricRecomputeDuration   = "jobfeed_profile_recompute_duration_seconds"
	MetricHTTPRequestsTotal   = "jobfeed_http_requests_total"
	MetricHTTPRequestDuration = "jobfeed_http_request_duration_seconds"
)

// Metrics holds every collector. A nil *Metrics is a valid no-op observer.
type Metrics struct {
	retrievals        *prometheus.CounterVec
	poolSize          *prometheus.HistogramVec
	fallbacks         *prometheus.CounterVec
	discoverDuration  *prometheus.HistogramVec
	discoverItems     prometheus.Histogram
	requestErrors     *prometheus.CounterVec
	interactions      *prometheus.CounterVec
	recomputes        *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

var (
	_ retrieval.Observer  = (*Metrics)(nil)
	_ adaptation.Observer = (*Metrics)(nil)
	_ discovery.Observer  = (*Metrics)(nil)
)

// New creates the collectors. They are not registered; call Register.
func New() *Metrics {
	return &Metrics{
		retrievals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRetrievalsTotal,
				Help: "Candidate pools retrieved by mode and whether the request was degraded",
			},
			[]string{"mode", "degraded"},
		),
		poolSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRetrievalPoolSize,
				Help:    "Number of candidates in retrieved pools",
				Buckets: []float64{0, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"mode"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRetrievalFallbacks,
				Help: "Similarity searches that fell back to recency, by reason",
			},
			[]string{"reason"},
		),
		discoverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricDiscoverDuration,
				Help:    "Discover request latency by retrieval mode",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		discoverItems: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricDiscoverItems,
				Help:    "Items returned per discover page",
				Buckets: []float64{0, 1, 5, 10, 20, 50},
			},
		),
		requestErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRequestErrorsTotal,
				Help: "Failed requests by operation and error kind",
			},
			[]string{"operation", "kind"},
		),
		interactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricInteractionsTotal,
				Help: "Positive interactions recorded, split by duplicates",
			},
			[]string{"duplicate"},
		),
		recomputes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRecomputesTotal,
				Help: "Profile vector recomputes by outcome",
			},
			[]string{"outcome"},
		),
		recomputeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRecomputeDuration,
				Help:    "Profile vector recompute latency",
				Buckets: prometheus.DefBuckets,
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.retrievals,
		m.poolSize,
		m.fallbacks,
		m.discoverDuration,
		m.discoverItems,
		m.requestErrors,
		m.interactions,
		m.recomputes,
		m.recomputeDuration,
		m.httpRequests,
		m.httpDuration,
	}
}

// ObserveRetrieval records a retrieved pool.
func (m *Metrics) ObserveRetrieval(mode string, degraded bool, size int) {
	if m == nil {
		return
	}
	m.retrievals.WithLabelValues(mode, strconv.FormatBool(degraded)).Inc()
	m.poolSize.WithLabelValues(mode).Observe(float64(size))
}

// ObserveFallback records a similarity failure answered by the recency path.
func (m *Metrics) ObserveFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

// ObserveDiscover records a successful discover request.
func (m *Metrics) ObserveDiscover(mode string, items int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.discoverDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.discoverItems.Observe(float64(items))
}

// ObserveRequestError records a failed request.
func (m *Metrics) ObserveRequestError(operation, kind string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(operation, kind).Inc()
}

// ObserveInteraction records a positive interaction.
func (m *Metrics) ObserveInteraction(duplicate bool) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(strconv.FormatBool(duplicate)).Inc()
}

// ObserveRecompute records a profile vector recompute.
func (m *Metrics) ObserveRecompute(outcome adaptation.Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.recomputes.WithLabelValues(string(outcome)).Inc()
	m.recomputeDuration.Observe(elapsed.Seconds())
}

// ObserveHTTP records a served HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
