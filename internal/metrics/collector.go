// Package metrics exposes Prometheus collectors for document loads, searches
// and HTTP traffic. A nil *Collector is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "apiscout"

// Collector groups every metric the service records.
type Collector struct {
	loadsTotal    *prometheus.CounterVec
	loadDuration  *prometheus.HistogramVec
	endpoints     prometheus.Gauge
	warnings      prometheus.Gauge
	searchesTotal *prometheus.CounterVec
	searchLatency *prometheus.HistogramVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector registers the collectors with reg. Passing nil uses the
// default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Collector{
		loadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_loads_total",
				Help:      "API document loads by source kind and outcome.",
			},
			[]string{"source", "status"},
		),
		loadDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "document_load_duration_seconds",
				Help:      "Time to fetch, parse and normalize an API document.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"source"},
		),
		endpoints: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_endpoints",
			Help:      "Endpoints in the currently loaded document.",
		}),
		warnings: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_reference_warnings",
			Help:      "Unresolved references in the currently loaded document.",
		}),
		searchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Searches by surface and whether anything matched.",
			},
			[]string{"surface", "outcome"},
		),
		searchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Time to rank endpoints and format results.",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"surface"},
		),
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordLoad counts one load attempt from a source of the given kind
// ("url", "file" or "bytes").
func (c *Collector) RecordLoad(source string, err error, d time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.loadsTotal.WithLabelValues(source, status).Inc()
	c.loadDuration.WithLabelValues(source).Observe(d.Seconds())
}

// SetDocument records the size of the document that is now current.
func (c *Collector) SetDocument(endpoints, warnings int) {
	if c == nil {
		return
	}
	c.endpoints.Set(float64(endpoints))
	c.warnings.Set(float64(warnings))
}

// RecordSearch counts one search on surface ("mcp", "http" or "cli").
func (c *Collector) RecordSearch(surface string, results int, d time.Duration) {
	if c == nil {
		return
	}
	outcome := "hit"
	if results == 0 {
		outcome = "empty"
	}
	c.searchesTotal.WithLabelValues(surface, outcome).Inc()
	c.searchLatency.WithLabelValues(surface).Observe(d.Seconds())
}

// RecordHTTPRequest counts one served request. route is the route template,
// not the concrete path, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
