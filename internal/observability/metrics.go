package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dmgmeter"

// Metrics holds the meter's Prometheus collectors on a private registry.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	events      *prometheus.CounterVec
	damage      prometheus.Counter
	healthTiers *prometheus.CounterVec
	resets      prometheus.Counter
	queueDepth  prometheus.Gauge
	linesSent   prometheus.Counter
}

// NewMetrics creates the collectors and registers them on a fresh registry.
//
// Postcondition: Returns a non-nil Metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "combat_events_total",
			Help:      "Combat events seen, by classification outcome.",
		}, []string{"outcome"}),
		damage: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "damage_recorded_total",
			Help:      "Absolute damage recorded into the ledger.",
		}),
		healthTiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_resolutions_total",
			Help:      "Max health resolutions, by source tier.",
		}, []string{"tier"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encounter_resets_total",
			Help:      "Ledger resets.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbound_queue_depth",
			Help:      "Report lines waiting for delivery.",
		}),
		linesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_lines_sent_total",
			Help:      "Report lines delivered to the host channel.",
		}),
	}
	m.registry.MustRegister(m.events, m.damage, m.healthTiers, m.resets, m.queueDepth, m.linesSent)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the /metrics scrape endpoint for m.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEvent counts one classified combat event.
func (m *Metrics) ObserveEvent(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

// ObserveDamage adds amount to the recorded damage counter and counts the health tier used.
func (m *Metrics) ObserveDamage(amount int64, tier string) {
	if m == nil {
		return
	}
	m.damage.Add(float64(amount))
	m.healthTiers.WithLabelValues(tier).Inc()
}

// ObserveReset counts one ledger reset.
func (m *Metrics) ObserveReset() {
	if m == nil {
		return
	}
	m.resets.Inc()
}

// ObserveQueue records the outbound queue depth and, when sent, one delivered line.
func (m *Metrics) ObserveQueue(depth int, sent bool) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
	if sent {
		m.linesSent.Inc()
	}
}
