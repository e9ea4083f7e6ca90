package models

import (
	"fmt"
	"math"
	"time"

	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
)

// Position is one coordinate sample from a partner's device.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Position) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return dErrors.New(dErrors.CodeValidation, "coordinates are out of range")
	}
	return nil
}

// LiveLocation is the last known position of a delivering partner. There is
// at most one per partner; each sample replaces it wholesale.
type LiveLocation struct {
	PartnerID  id.UserID     `json:"partner_id"`
	Lat        float64       `json:"lat"`
	Lng        float64       `json:"lng"`
	Timestamp  time.Time     `json:"timestamp"`
	ActiveTask id.DonationID `json:"active_task"`
}

func NewLiveLocation(partner id.UserID, donation id.DonationID, pos Position, now time.Time) *LiveLocation {
	return &LiveLocation{
		PartnerID:  partner,
		Lat:        pos.Lat,
		Lng:        pos.Lng,
		Timestamp:  now,
		ActiveTask: donation,
	}
}

// UpdateKind tells a viewer what changed.
type UpdateKind string

const (
	// UpdatePosition carries a new sample.
	UpdatePosition UpdateKind = "position"
	// UpdateOffline means the live record was removed: the delivery finished
	// or the partner stopped sharing. It is not an error.
	UpdateOffline UpdateKind = "offline"
)

// Update is what subscribers receive on every overwrite or removal.
type Update struct {
	Kind     UpdateKind    `json:"kind"`
	Location *LiveLocation `json:"location,omitempty"`
}

func PositionUpdate(loc *LiveLocation) Update {
	return Update{Kind: UpdatePosition, Location: loc}
}

func OfflineUpdate() Update {
	return Update{Kind: UpdateOffline}
}

// Status reported to the partner after starting a delivery.
type Status string

const (
	StatusLive        Status = "live"
	StatusUnavailable Status = "unavailable"
)

// LastSeen renders how long ago a sample arrived, for tracking views.
func LastSeen(ts, now time.Time) string {
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
