// Package metrics exposes Prometheus instrumentation for the HTTP API, the
// container packer and the product catalog.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plantevern"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	packDuration    prometheus.Histogram
	packedQuantity  *prometheus.CounterVec
	catalogFetches  *prometheus.CounterVec
}

// New registers the application collectors together with the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		packDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "packer",
			Name:      "duration_seconds",
			Help:      "Time spent computing container plans.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		packedQuantity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "packer",
			Name:      "quantity_total",
			Help:      "Total quantity planned, in liters or kilograms.",
		}, []string{"unit"}),
		catalogFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "fetches_total",
			Help:      "Product catalog loads by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.packDuration,
		m.packedQuantity,
		m.catalogFetches,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one completed HTTP request. An empty route means the
// request did not match any pattern.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObservePack records one packer run and the canonical quantity it covered.
func (m *Metrics) ObservePack(unitLabel string, quantity float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.packDuration.Observe(elapsed.Seconds())
	if quantity > 0 {
		m.packedQuantity.WithLabelValues(unitLabel).Add(quantity)
	}
}

// ObserveCatalogFetch counts a catalog load; ok=false counts a failure.
func (m *Metrics) ObserveCatalogFetch(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.catalogFetches.WithLabelValues(result).Inc()
}
