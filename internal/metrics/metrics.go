// Package metrics exposes Prometheus instrumentation for the search
// pipeline, the metadata provider, and the catalog.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cartridge"

// Metrics holds all collectors, registered on a private registry so the
// /metrics endpoint serves only application metrics. All methods are safe
// for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	searches       *prometheus.CounterVec
	searchDuration prometheus.Histogram
	searchResults  prometheus.Histogram

	providerRequests *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	gateWait         prometheus.Histogram

	upserts prometheus.Counter
}

// New creates a Metrics with all collectors registered on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Metrics{
		registry: registry,
		searches: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of searches served, by detected intent",
		}, []string{"intent"}),
		searchDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search pipeline duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		searchResults: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Distribution of result counts returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		providerRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total provider requests, by provider and outcome",
		}, []string{"provider", "outcome"}),
		fallbacks: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fallbacks_total",
			Help:      "Searches served from the catalog after a provider failure, by failure category",
		}, []string{"category"}),
		cacheHits: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_cache_hits_total",
			Help:      "Provider result cache hits",
		}),
		cacheMisses: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_cache_misses_total",
			Help:      "Provider result cache misses",
		}),
		gateWait: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gate_wait_seconds",
			Help:      "Time requests spend queued at the provider gate before firing",
			Buckets:   prometheus.DefBuckets,
		}),
		upserts: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_upserted_total",
			Help:      "Total games inserted or updated in the catalog",
		}),
	}
}

// RecordSearch records one completed search.
func (m *Metrics) RecordSearch(intent string, duration time.Duration, results int) {
	m.searches.WithLabelValues(intent).Inc()
	m.searchDuration.Observe(duration.Seconds())
	m.searchResults.Observe(float64(results))
}

// RecordProviderRequest records a provider call by outcome ("ok" or "error").
func (m *Metrics) RecordProviderRequest(provider, outcome string) {
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordFallback records a search degraded to catalog-only results.
func (m *Metrics) RecordFallback(category string) {
	m.fallbacks.WithLabelValues(category).Inc()
}

// RecordCacheHit records a provider cache hit.
func (m *Metrics) RecordCacheHit() { m.cacheHits.Inc() }

// RecordCacheMiss records a provider cache miss.
func (m *Metrics) RecordCacheMiss() { m.cacheMisses.Inc() }

// ObserveGateWait records time spent waiting at the provider gate.
func (m *Metrics) ObserveGateWait(d time.Duration) {
	m.gateWait.Observe(d.Seconds())
}

// RecordUpserts records games written to the catalog.
func (m *Metrics) RecordUpserts(n int) {
	m.upserts.Add(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an http.Handler serving the metrics in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
