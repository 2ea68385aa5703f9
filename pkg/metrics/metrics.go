// Package metrics exposes the controller metrics in the prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics owns a registry per controller instance, so that several instances
// in one process do not share counters.
type Metrics struct {
	registry *prometheus.Registry

	HandledEvents   prometheus.Counter
	ReconcileTotal  *prometheus.CounterVec
	ReconcileErrors *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HandledEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "handled_events",
			Help: "handled events",
		}),
		ReconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_total",
			Help: "Total number of reconciles per result.",
		}, []string{"result"}),
		ReconcileErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_errors_total",
			Help: "Total number of failed reconciles per reason.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(
		m.HandledEvents,
		m.ReconcileTotal,
		m.ReconcileErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.registry.MustRegister(workqueueCollectors()...)
	return m
}

// Registry returns the registry behind Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveReconcile counts a reconcile. reason is only used for failures.
func (m *Metrics) ObserveReconcile(err error, reason string) {
	if err == nil {
		m.ReconcileTotal.WithLabelValues(ResultSuccess).Inc()
		return
	}
	m.ReconcileTotal.WithLabelValues(ResultError).Inc()
	m.ReconcileErrors.WithLabelValues(reason).Inc()
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
