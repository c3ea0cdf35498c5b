// Package metrics holds the prometheus instrumentation of the controller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors shared by the engine, the override path, and
// the broadcast hub.
type Metrics struct {
	TicksTotal       prometheus.Counter
	TickErrorsTotal  prometheus.Counter
	TransitionsTotal *prometheus.CounterVec
	OverridesTotal   prometheus.Counter
	ResetsTotal      prometheus.Counter
	BroadcastsTotal  prometheus.Counter
	Subscribers      prometheus.Gauge
}

// New builds and registers the collector set.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsc_engine_ticks_total",
			Help: "Cycle engine ticks executed.",
		}),
		TickErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsc_engine_tick_errors_total",
			Help: "Cycle engine ticks that failed and triggered backoff.",
		}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsc_engine_transitions_total",
			Help: "Phase transitions committed, by entered phase.",
		}, []string{"phase"}),
		OverridesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsc_manual_overrides_total",
			Help: "Manual overrides applied.",
		}),
		ResetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsc_intersection_resets_total",
			Help: "Intersections restored to automatic mode.",
		}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsc_broadcasts_total",
			Help: "Envelopes published to the broadcast bus.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tsc_subscribers_connected",
			Help: "Live broadcast subscribers.",
		}),
	}
	reg.MustRegister(
		m.TicksTotal,
		m.TickErrorsTotal,
		m.TransitionsTotal,
		m.OverridesTotal,
		m.ResetsTotal,
		m.BroadcastsTotal,
		m.Subscribers,
	)
	return m
}
