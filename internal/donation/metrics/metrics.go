package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks donation submissions and lifecycle transitions.
type Metrics struct {
	Submitted          prometheus.Counter
	Transitions        *prometheus.CounterVec
	Conflicts          *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "givetrack_donations_submitted_total",
			Help: "Donations submitted by donors",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "givetrack_donation_transitions_total",
			Help: "Committed donation status transitions by target status",
		}, []string{"to"}),
		Conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "givetrack_donation_transition_conflicts_total",
			Help: "Transitions refused because the stored state no longer matched",
		}, []string{"to"}),
		TransitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "givetrack_donation_transition_duration_seconds",
			Help:    "Duration of the conditional update behind each transition",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"to"}),
	}
}

func (m *Metrics) IncrementSubmitted() {
	m.Submitted.Inc()
}

// ObserveTransition records a committed transition. Call with the time the
// conditional update started.
func (m *Metrics) ObserveTransition(to string, start time.Time) {
	m.Transitions.WithLabelValues(to).Inc()
	m.TransitionDuration.WithLabelValues(to).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementConflict(to string) {
	m.Conflicts.WithLabelValues(to).Inc()
}
