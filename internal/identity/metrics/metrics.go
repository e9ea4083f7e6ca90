package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SignIns  *prometheus.CounterVec
	SignOuts prometheus.Counter
	// RevocationCheckDuration observes session revocation lookups.
	RevocationCheckDuration prometheus.Histogram
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SignIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "givetrack_identity_sign_ins_total",
			Help: "Sign-in attempts by method and outcome",
		}, []string{"method", "outcome"}),
		SignOuts: factory.NewCounter(prometheus.CounterOpts{
			Name: "givetrack_identity_sign_outs_total",
			Help: "Sessions ended by sign-out",
		}),
		RevocationCheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "givetrack_identity_revocation_check_seconds",
			Help:    "Latency of session revocation checks",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}),
	}
}

func (m *Metrics) IncrementSignIn(method, outcome string) {
	m.SignIns.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) IncrementSignOut() {
	m.SignOuts.Inc()
}

func (m *Metrics) ObserveRevocationCheck(seconds float64) {
	m.RevocationCheckDuration.Observe(seconds)
}
