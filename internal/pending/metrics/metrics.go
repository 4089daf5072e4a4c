package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ActionsDeferred  *prometheus.CounterVec
	ExpiredDropped   prometheus.Counter
	MalformedDropped prometheus.Counter
	DispatchTotal    *prometheus.CounterVec
	ReplayPasses     *prometheus.CounterVec
	ReplayDuration   prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		ActionsDeferred: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mockpay_pending_actions_deferred_total",
			Help: "Total number of actions persisted for replay after authentication",
		}, []string{"kind"}),
		ExpiredDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mockpay_pending_expired_dropped_total",
			Help: "Total number of pending actions lazily dropped because their TTL elapsed",
		}),
		MalformedDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mockpay_pending_malformed_dropped_total",
			Help: "Total number of stored entries dropped because they failed to parse",
		}),
		DispatchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mockpay_replay_dispatch_total",
			Help: "Total number of replay dispatches by action kind and outcome",
		}, []string{"kind", "outcome"}),
		ReplayPasses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mockpay_replay_passes_total",
			Help: "Total number of replay passes by aggregate outcome",
		}, []string{"outcome"}),
		ReplayDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mockpay_replay_pass_duration_seconds",
			Help:    "Duration of non-empty replay passes",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncDeferred(kind string) {
	m.ActionsDeferred.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncExpiredDropped() {
	m.ExpiredDropped.Inc()
}

func (m *Metrics) IncMalformedDropped() {
	m.MalformedDropped.Inc()
}

func (m *Metrics) IncDispatch(kind, outcome string) {
	m.DispatchTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncReplayPass(outcome string) {
	m.ReplayPasses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveReplayDuration(d time.Duration) {
	m.ReplayDuration.Observe(d.Seconds())
}
