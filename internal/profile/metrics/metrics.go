package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ProfilesCreated prometheus.Counter
	RoleChanges     *prometheus.CounterVec
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProfilesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "givetrack_profiles_created_total",
			Help: "Profiles created on first sign-in",
		}),
		RoleChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "givetrack_profile_role_changes_total",
			Help: "Committed role changes by resulting role",
		}, []string{"role"}),
	}
}

func (m *Metrics) IncrementProfilesCreated() {
	m.ProfilesCreated.Inc()
}

func (m *Metrics) IncrementRoleChange(role string) {
	m.RoleChanges.WithLabelValues(role).Inc()
}
