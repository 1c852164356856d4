package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine's Prometheus instruments.
type Metrics struct {
	Evaluations        prometheus.Counter
	EvaluationDuration prometheus.Histogram
	Unlocks            *prometheus.CounterVec
	BannersEnqueued    prometheus.Counter
	RemoteFailures     prometheus.Counter
}

// NewMetrics creates the instruments and registers them on reg. A nil reg
// leaves them unregistered, which is what tests and the CLI want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "badgekeeper_evaluations_total",
			Help: "Total number of unlock checks",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "badgekeeper_evaluation_duration_seconds",
			Help:    "Duration of an unlock check, snapshot through enqueue",
			Buckets: prometheus.DefBuckets,
		}),
		Unlocks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "badgekeeper_unlocks_total",
				Help: "Newly detected unlocks",
			},
			[]string{"achievement"},
		),
		BannersEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "badgekeeper_banners_enqueued_total",
			Help: "Banners handed to the notification queue",
		}),
		RemoteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "badgekeeper_remote_fetch_failures_total",
			Help: "Failed remote stats fetches",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Evaluations, m.EvaluationDuration, m.Unlocks, m.BannersEnqueued, m.RemoteFailures)
	}
	return m
}
