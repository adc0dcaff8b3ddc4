// Package tenmetrics exposes the Prometheus counters and gauges the
// simulation engines update as they run. A single Registry is constructed at
// startup and threaded into each engine; nothing here is process-global.
package tenmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the tension engines record.
type Registry struct {
	TensionUpdates       *prometheus.CounterVec
	TensionDecayRuns     prometheus.Counter
	ModifierExpirations  *prometheus.CounterVec
	FactionTensionUpdates *prometheus.CounterVec
	FactionWarsDeclared  prometheus.Counter
	FactionPeaceOpenings prometheus.Counter
	ConflictTriggers     *prometheus.CounterVec
	Revolts              *prometheus.CounterVec
	PredictionsGenerated *prometheus.CounterVec
	PredictionAccuracy   *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewRegistry constructs and registers every metric.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		TensionUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tension_environment_updates_total",
				Help: "Total environmental tension updates by event kind",
			},
			[]string{"event_kind"},
		),
		TensionDecayRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tension_environment_decay_runs_total",
				Help: "Total DecayAllTension sweeps executed",
			},
		),
		ModifierExpirations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tension_environment_modifier_expirations_total",
				Help: "Total tension modifiers removed for having expired",
			},
			[]string{"modifier_type"},
		),
		FactionTensionUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tension_faction_updates_total",
				Help: "Total faction tension updates by resulting relationship type",
			},
			[]string{"relationship_type"},
		),
		FactionWarsDeclared: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tension_faction_wars_declared_total",
				Help: "Total faction_war_declared crossings",
			},
		),
		FactionPeaceOpenings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tension_faction_peace_opportunities_total",
				Help: "Total faction_peace_opportunity crossings",
			},
		),
		ConflictTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tension_conflict_triggers_total",
				Help: "Total conflict triggers fired by trigger type",
			},
			[]string{"trigger_type"},
		),
		Revolts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tension_revolts_total",
				Help: "Total simulated revolts by outcome",
			},
			[]string{"outcome"},
		),
		PredictionsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tension_predictions_generated_total",
				Help: "Total predictions generated by kind (escalation, outbreak)",
			},
			[]string{"kind"},
		),
		PredictionAccuracy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tension_prediction_accuracy",
				Help: "Most recent prediction accuracy score by region",
			},
			[]string{"region_id"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.TensionUpdates,
		m.TensionDecayRuns,
		m.ModifierExpirations,
		m.FactionTensionUpdates,
		m.FactionWarsDeclared,
		m.FactionPeaceOpenings,
		m.ConflictTriggers,
		m.Revolts,
		m.PredictionsGenerated,
		m.PredictionAccuracy,
	)

	return m
}

// Handler returns an http.Handler exposing the registry in the Prometheus
// exposition format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
