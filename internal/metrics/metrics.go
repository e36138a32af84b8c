// Package metrics counts completed user actions and serves them in the
// Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so tests and multiple routers in one
// process never collide on the default one.
type Recorder struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
}

func New() *Recorder {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "saaskit",
		Name:      "events_total",
		Help:      "Completed user actions by event name.",
	}, []string{"event"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Recorder{registry: registry, events: events}
}

// Record counts one occurrence of event, e.g. "team.created".
func (r *Recorder) Record(event string) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(event).Inc()
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
