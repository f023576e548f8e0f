package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder counts access decisions and workflow outcomes on its own
// registry so several instances can coexist in tests.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	access   *prometheus.CounterVec
	actions  *prometheus.CounterVec
}

func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		access: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_access_decisions_total",
			Help: "Authorization decisions by kind and result.",
		}, []string{"kind", "allowed"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "governance_workflow_actions_total",
			Help: "Workflow action attempts by action and outcome.",
		}, []string{"action", "outcome"}),
	}
	r.registry.MustRegister(r.access, r.actions)
	return r
}

func (r *PrometheusRecorder) ObserveAccess(kind string, allowed bool) {
	r.access.WithLabelValues(kind, strconv.FormatBool(allowed)).Inc()
}

func (r *PrometheusRecorder) ObserveAction(action, outcome string) {
	r.actions.WithLabelValues(action, outcome).Inc()
}

func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
