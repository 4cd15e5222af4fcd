// Package metrics exposes Prometheus collectors for simulations and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "souzoku"

// Source labels for simulations_total
const (
	SourceWeb    = "web"
	SourceAPI    = "api"
	SourceCLI    = "cli"
	SourceWorker = "worker"
)

// Metrics holds the collectors on a private registry, not the global default.
type Metrics struct {
	registry *prometheus.Registry

	simulations   *prometheus.CounterVec
	failures      *prometheus.CounterVec
	taxAmount     *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	workerReplies *prometheus.CounterVec
}

// New builds and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulations_total",
			Help:      "Simulations computed, by source and scenario.",
		}, []string{"source", "scenario"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_failures_total",
			Help:      "Simulations rejected before computation, by source.",
		}, []string{"source"}),
		taxAmount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tax_amount_man_yen",
			Help:      "Distribution of computed tax amounts in 万円.",
			Buckets:   []float64{0, 100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		}, []string{"kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, by outcome.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		workerReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_replies_total",
			Help:      "Replies published by the AMQP worker, by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.simulations,
		m.failures,
		m.taxAmount,
		m.cacheLookups,
		m.httpDuration,
		m.workerReplies,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// NewServer returns an HTTP server exposing GET /metrics on addr, for
// processes that have no other HTTP surface.
func (m *Metrics) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// ObserveSimulation records one computed simulation.
func (m *Metrics) ObserveSimulation(source string, spouseInheritsAll bool, primary float64, hasSecondary bool, secondary float64) {
	if m == nil {
		return
	}
	scenario := "primary_only"
	if spouseInheritsAll {
		scenario = "spouse_inherits_all"
	}
	m.simulations.WithLabelValues(source, scenario).Inc()
	m.taxAmount.WithLabelValues("primary").Observe(primary)
	if hasSecondary {
		m.taxAmount.WithLabelValues("secondary").Observe(secondary)
	}
}

// ObserveFailure records a rejected simulation request.
func (m *Metrics) ObserveFailure(source string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(source).Inc()
}

// ObserveCache records a result cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObserveWorkerReply records the outcome of a worker reply.
func (m *Metrics) ObserveWorkerReply(outcome string) {
	if m == nil {
		return
	}
	m.workerReplies.WithLabelValues(outcome).Inc()
}
