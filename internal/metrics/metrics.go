// Package metrics exposes prometheus collectors for indexing and search.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	indexDuration *prometheus.HistogramVec
	indexRecords  prometheus.Gauge
	cacheLoads    *prometheus.CounterVec
	searches      *prometheus.CounterVec
	searchLatency prometheus.Histogram
	launches      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		indexDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ade_launchd_index_duration_seconds",
			Help:    "Duration of index scans",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		indexRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ade_launchd_index_records",
			Help: "Records produced by the last index scan",
		}),
		cacheLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ade_launchd_cache_loads_total",
			Help: "Candidate cache loads by outcome",
		}, []string{"outcome"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ade_launchd_searches_total",
			Help: "Search computations by outcome",
		}, []string{"outcome"}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ade_launchd_search_latency_seconds",
			Help:    "Latency of published searches",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ade_launchd_launches_total",
			Help: "Launch requests by status",
		}, []string{"status"}),
	}
	reg.MustRegister(m.indexDuration, m.indexRecords, m.cacheLoads, m.searches, m.searchLatency, m.launches)
	return m
}

// ObserveIndex records a scan; kind is "full", "refresh" or "snapshot".
func (m *Metrics) ObserveIndex(kind string, d time.Duration, records int) {
	if m == nil {
		return
	}
	m.indexDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.indexRecords.Set(float64(records))
}

// CacheLoad counts a cache read path outcome: "fresh", "stale" or "missing".
func (m *Metrics) CacheLoad(outcome string) {
	if m == nil {
		return
	}
	m.cacheLoads.WithLabelValues(outcome).Inc()
}

// SearchPublished records a search that reached its observers.
func (m *Metrics) SearchPublished(d time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues("published").Inc()
	m.searchLatency.Observe(d.Seconds())
}

// SearchSuperseded records a search dropped in favour of a newer query.
func (m *Metrics) SearchSuperseded() {
	if m == nil {
		return
	}
	m.searches.WithLabelValues("superseded").Inc()
}

func (m *Metrics) Launch(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.launches.WithLabelValues(status).Inc()
}
