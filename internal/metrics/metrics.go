// Package metrics exposes planner counters and histograms for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/wielermanager/internal/milp"
)

const namespace = "wielermanager"

// Metrics holds all collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	solves        *prometheus.CounterVec
	solveDuration *prometheus.HistogramVec
	plans         *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	scrapes       *prometheus.CounterVec
}

// New registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Finished MILP solves by backend and raw status.",
		}, []string{"backend", "status"}),
		solveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Wall-clock duration of MILP solves.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"backend"}),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Plans produced by strategy and status.",
		}, []string{"strategy", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_cache_lookups_total",
			Help:      "Plan cache lookups by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_requests_total",
			Help:      "Outgoing scrape requests by source and outcome.",
		}, []string{"source", "outcome"}),
	}

	m.registry.MustRegister(
		m.solves, m.solveDuration, m.plans, m.cacheLookups, m.httpRequests, m.scrapes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSolve implements optimizer.SolveObserver
func (m *Metrics) ObserveSolve(backend string, status milp.Status, d time.Duration) {
	m.solves.WithLabelValues(backend, string(status)).Inc()
	m.solveDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// ObservePlan counts a produced plan
func (m *Metrics) ObservePlan(strategy, status string) {
	m.plans.WithLabelValues(strategy, status).Inc()
}

// ObserveCache counts a plan cache hit or miss
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP counts a served request
func (m *Metrics) ObserveHTTP(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveScrape counts an outgoing scrape request
func (m *Metrics) ObserveScrape(source string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.scrapes.WithLabelValues(source, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
