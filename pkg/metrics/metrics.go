// Package metrics exposes Prometheus instruments for builder sessions and
// the step API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stepflow"

// Save outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeNoOp     = "noop"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	saves          *prometheus.CounterVec
	saveDuration   prometheus.Histogram
	stepWrites     *prometheus.CounterVec
	deletes        *prometheus.CounterVec
	activeSessions prometheus.Gauge
	httpRequests   *prometheus.CounterVec
}

// New registers the collectors on a fresh registry that also carries the Go
// and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		saves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builder_saves_total",
			Help:      "Builder saves by outcome",
		}, []string{"outcome"}),
		saveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "builder_save_duration_seconds",
			Help:      "Duration of builder saves that reached the step API",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		stepWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_writes_total",
			Help:      "Steps written by operation and status",
		}, []string{"operation", "status"}),
		deletes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builder_node_deletes_total",
			Help:      "Node deletions by status",
		}, []string{"status"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "builder_sessions",
			Help:      "Builder sessions currently held in memory",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveSave(outcome string, duration time.Duration) {
	if m == nil {
		return
	}

	m.saves.WithLabelValues(outcome).Inc()

	if outcome != OutcomeNoOp && outcome != OutcomeConflict {
		m.saveDuration.Observe(duration.Seconds())
	}
}

// AddStepWrites counts steps sent in a create, update or delete call.
func (m *Metrics) AddStepWrites(operation string, count int, err error) {
	if m == nil || count == 0 {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	m.stepWrites.WithLabelValues(operation, status).Add(float64(count))
}

func (m *Metrics) ObserveDelete(err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	m.deletes.WithLabelValues(status).Inc()
}

func (m *Metrics) SetSessions(count int) {
	if m == nil {
		return
	}

	m.activeSessions.Set(float64(count))
}

func (m *Metrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}

	m.httpRequests.WithLabelValues(method, route, http.StatusText(status)).Inc()
}
