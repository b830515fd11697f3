// Package metrics exposes poll and mutation counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/matheus3301/drv/internal/failure"
)

// Metrics holds the daemon's collectors on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	fetches     *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	discarded   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	sends       *prometheus.CounterVec
}

// New registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drv_poll_fetches_total",
			Help: "Completed poll fetches by subscription and result.",
		}, []string{"subscription", "result"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drv_poll_ticks_skipped_total",
			Help: "Ticks that arrived while a fetch was still in flight.",
		}, []string{"subscription"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drv_poll_results_discarded_total",
			Help: "Fetch results dropped because the view stopped being live.",
		}, []string{"subscription"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drv_order_transitions_total",
			Help: "Order status submissions by outcome.",
		}, []string{"result"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drv_chat_sends_total",
			Help: "Chat message submissions by outcome.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.fetches, m.skipped, m.discarded, m.transitions, m.sends,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) FetchDone(subscription string, err error) {
	m.fetches.WithLabelValues(subscription, failure.Outcome(err)).Inc()
}

func (m *Metrics) TickSkipped(subscription string) {
	m.skipped.WithLabelValues(subscription).Inc()
}

func (m *Metrics) ResultDiscarded(subscription string) {
	m.discarded.WithLabelValues(subscription).Inc()
}

func (m *Metrics) Transition(outcome string) {
	m.transitions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ChatSend(outcome string) {
	m.sends.WithLabelValues(outcome).Inc()
}
