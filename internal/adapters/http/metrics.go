package http

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dverbeek/ramify/pkg/domain"
)

// Metrics holds the engine counters exported on /metrics. Transition and
// fault counters are fed through lifecycle hooks; the step counter is
// incremented by the HTTP handler.
type Metrics struct {
	StepsTotal       prometheus.Counter
	TransitionsTotal *prometheus.CounterVec
	StateEntersTotal *prometheus.CounterVec
	FaultsTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ramify_steps_total",
			Help: "Total number of engine steps",
		}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ramify_transitions_total",
			Help: "Total number of fired transitions",
		}, []string{"event"}),
		StateEntersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ramify_state_enters_total",
			Help: "Total number of state entries",
		}, []string{"state"}),
		FaultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ramify_snippet_faults_total",
			Help: "Total number of blocked or faulted snippets",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.StepsTotal, m.TransitionsTotal, m.StateEntersTotal, m.FaultsTotal)
	return m
}

// Hooks returns lifecycle hooks that feed the counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(e domain.StateEvent) {
			m.StateEntersTotal.WithLabelValues(e.State).Inc()
		},
		OnTransition: func(e domain.TransitionEvent) {
			m.TransitionsTotal.WithLabelValues(e.Event).Inc()
		},
		OnFault: func(e domain.FaultEvent) {
			m.FaultsTotal.WithLabelValues(string(e.Kind)).Inc()
		},
	}
}
