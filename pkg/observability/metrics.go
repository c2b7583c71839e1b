package observability

import (
	"context"

	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by the router hooks.
type Metrics struct {
	Turns        *prometheus.CounterVec
	TurnDuration *prometheus.HistogramVec
	DialogBegins *prometheus.CounterVec
	DialogEnds   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstack_turns_total",
				Help: "Total number of routed turns by outcome",
			},
			[]string{"router_id", "status"},
		),
		TurnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turnstack_turn_duration_seconds",
				Help:    "Duration of routed turns",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"router_id"},
		),
		DialogBegins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstack_dialog_begins_total",
				Help: "Total number of dialogs pushed on a stack",
			},
			[]string{"dialog_id"},
		),
		DialogEnds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstack_dialog_ends_total",
				Help: "Total number of dialogs popped off a stack",
			},
			[]string{"dialog_id", "reason"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Turns, m.TurnDuration, m.DialogBegins, m.DialogEnds} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			status := string(e.Status)
			if e.Err != nil {
				status = "error"
			}
			m.Turns.WithLabelValues(e.RouterID, status).Inc()
			m.TurnDuration.WithLabelValues(e.RouterID).Observe(e.Duration.Seconds())
		},
		OnDialogBegin: func(ctx context.Context, e *domain.DialogEvent) {
			m.DialogBegins.WithLabelValues(e.DialogID).Inc()
		},
		OnDialogEnd: func(ctx context.Context, e *domain.DialogEvent) {
			m.DialogEnds.WithLabelValues(e.DialogID, string(e.Reason)).Inc()
		},
	}
}
