// Package metrics exposes Prometheus instrumentation for search and backfill.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result sources reported by the hybrid search pipeline.
const (
	SourceVector  = "vector"
	SourceKeyword = "keyword"
)

// Metrics holds the Prometheus collectors for the search subsystem.
type Metrics struct {
	registry *prometheus.Registry

	searchDuration    *prometheus.HistogramVec
	searchResults     *prometheus.CounterVec
	searchErrors      *prometheus.CounterVec
	embeddingDuration prometheus.Histogram
	backfillProcessed prometheus.Counter
	backfillFailed    prometheus.Counter
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harmonium_search_duration_seconds",
			Help:    "Duration of search requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		searchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harmonium_search_results_total",
			Help: "Search results returned, by pipeline source.",
		}, []string{"source"}),
		searchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harmonium_search_errors_total",
			Help: "Search requests that failed, by error kind.",
		}, []string{"kind"}),
		embeddingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "harmonium_embedding_duration_seconds",
			Help:    "Duration of embedding computations.",
			Buckets: prometheus.DefBuckets,
		}),
		backfillProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harmonium_backfill_processed_total",
			Help: "Tracks successfully embedded by the backfill run.",
		}),
		backfillFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harmonium_backfill_failed_total",
			Help: "Tracks the backfill run failed to embed.",
		}),
	}

	registry.MustRegister(
		m.searchDuration,
		m.searchResults,
		m.searchErrors,
		m.embeddingDuration,
		m.backfillProcessed,
		m.backfillFailed,
	)

	return m
}

// ObserveSearch records the duration of one search request.
func (m *Metrics) ObserveSearch(kind string, d time.Duration) {
	m.searchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// AddResults records how many results a pipeline source contributed.
func (m *Metrics) AddResults(source string, n int) {
	if n <= 0 {
		return
	}
	m.searchResults.WithLabelValues(source).Add(float64(n))
}

// IncSearchError records a failed search request.
func (m *Metrics) IncSearchError(kind string) {
	m.searchErrors.WithLabelValues(kind).Inc()
}

// ObserveEmbedding records the duration of one embedding computation.
func (m *Metrics) ObserveEmbedding(d time.Duration) {
	m.embeddingDuration.Observe(d.Seconds())
}

// AddBackfill records the outcome counts of a backfill run.
func (m *Metrics) AddBackfill(processed, failed int) {
	m.backfillProcessed.Add(float64(processed))
	m.backfillFailed.Add(float64(failed))
}

// Handler returns an http.Handler serving this registry in the Prometheus
// text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
