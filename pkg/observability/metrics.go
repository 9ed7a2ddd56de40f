package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/firestream/pkg/domain"
)

// Metrics holds the Prometheus collectors of a driver.
type Metrics struct {
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	sources  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firestream",
			Name:      "actions_total",
			Help:      "Total actions executed, labeled by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "firestream",
			Name:      "action_duration_seconds",
			Help:      "Histogram of backend call durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		sources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "firestream",
			Name:      "active_sources",
			Help:      "Lazy sources currently holding a backend subscription.",
		}, []string{"source"}),
	}
	for _, c := range []prometheus.Collector{m.actions, m.duration, m.sources} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns the hooks feeding the collectors.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnActionDone: func(_ context.Context, e *domain.ActionEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			kind := e.Kind.String()
			m.actions.WithLabelValues(kind, outcome).Inc()
			m.duration.WithLabelValues(kind).Observe(e.Duration.Seconds())
		},
		OnSourceStart: func(e *domain.SourceEvent) {
			m.sources.WithLabelValues(e.Source).Inc()
		},
		OnSourceStop: func(e *domain.SourceEvent) {
			m.sources.WithLabelValues(e.Source).Dec()
		},
	}
}
