package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	dErrors "givetrack/pkg/domain-errors"
)

func TestLastSeen(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{-5 * time.Second, "just now"},
		{59 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5*time.Minute + 30*time.Second, "5 minutes ago"},
		{time.Hour, "1 hour ago"},
		{3 * time.Hour, "3 hours ago"},
		{50 * time.Hour, "2 days ago"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LastSeen(now.Add(-tc.ago), now), tc.ago.String())
	}
}

func TestPositionValidate(t *testing.T) {
	assert.NoError(t, Position{Lat: 51.5, Lng: -0.12}.Validate())
	for _, p := range []Position{{Lat: 91}, {Lng: -181}, {Lat: math.NaN()}} {
		assert.True(t, dErrors.HasCode(p.Validate(), dErrors.CodeValidation))
	}
}
