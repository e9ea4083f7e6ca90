package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks location publication and tracking streams.
type Metrics struct {
	Samples             *prometheus.CounterVec
	ActiveSubscriptions prometheus.Gauge
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Samples: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "givetrack_location_samples_total",
			Help: "Position samples by outcome",
		}, []string{"outcome"}),
		ActiveSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "givetrack_location_active_subscriptions",
			Help: "Open tracking subscriptions",
		}),
	}
}

func (m *Metrics) IncrementSample(outcome string) {
	m.Samples.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SubscriptionOpened() {
	m.ActiveSubscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	m.ActiveSubscriptions.Dec()
}
