// Package metrics holds the Prometheus collectors for the capture pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Event outcomes.
const (
	EventDisabled  = "disabled"
	EventThrottled = "throttled"
	EventProcessed = "processed"
)

// Item outcomes.
const (
	ItemSaved     = "saved"
	ItemIgnored   = "ignored"
	ItemDuplicate = "duplicate"
	ItemBlank     = "blank"
	ItemFailed    = "failed"
	ItemDropped   = "dropped"
)

// Metrics is a set of collectors bound to a private registry, so several
// pipelines (and tests) can coexist in one process.
type Metrics struct {
	reg *prometheus.Registry

	events     *prometheus.CounterVec
	items      *prometheus.CounterVec
	traversal  prometheus.Summary
	cacheItems prometheus.Gauge
}

// New creates and registers the pipeline collectors plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}

	m.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glean",
		Name:      "events_total",
		Help:      "Snapshot events by outcome",
	}, []string{"outcome"})
	m.items = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glean",
		Name:      "items_total",
		Help:      "Text items by outcome",
	}, []string{"outcome"})
	m.traversal = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace:  "glean",
		Name:       "traversal_duration_seconds",
		Help:       "Time spent walking a snapshot tree",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})
	m.cacheItems = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "glean",
		Name:      "dedup_cache_entries",
		Help:      "Keys currently held by the dedup cache",
	})

	m.reg.MustRegister(
		m.events, m.items, m.traversal, m.cacheItems,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Pre-create label sets so zero counts are exported.
	for _, o := range []string{EventDisabled, EventThrottled, EventProcessed} {
		m.events.WithLabelValues(o)
	}
	for _, o := range []string{ItemSaved, ItemIgnored, ItemDuplicate, ItemBlank, ItemFailed, ItemDropped} {
		m.items.WithLabelValues(o)
	}
	return m
}

// Event counts one event outcome. Safe on a nil receiver.
func (m *Metrics) Event(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

// Item counts one item outcome. Safe on a nil receiver.
func (m *Metrics) Item(outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(outcome).Inc()
}

// ObserveTraversal records the duration of one walk.
func (m *Metrics) ObserveTraversal(d time.Duration) {
	if m == nil {
		return
	}
	m.traversal.Observe(d.Seconds())
}

// SetCacheEntries reports the dedup cache size.
func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheItems.Set(float64(n))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
