package handler

import (
	"time"

	"givetrack/internal/location/models"
	dErrors "givetrack/pkg/domain-errors"
)

type SampleRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (r *SampleRequest) Validate() error {
	if r.Lat == nil || r.Lng == nil {
		return dErrors.New(dErrors.CodeValidation, "lat and lng are required")
	}
	return r.Position().Validate()
}

func (r *SampleRequest) Position() models.Position {
	var pos models.Position
	if r.Lat != nil {
		pos.Lat = *r.Lat
	}
	if r.Lng != nil {
		pos.Lng = *r.Lng
	}
	return pos
}

type LocationResponse struct {
	*models.LiveLocation
	LastSeen string `json:"last_seen"`
}

func toLocationResponse(loc *models.LiveLocation, now time.Time) LocationResponse {
	return LocationResponse{LiveLocation: loc, LastSeen: models.LastSeen(loc.Timestamp, now)}
}

// TrackingEvent is the data payload of one server-sent event.
type TrackingEvent struct {
	Kind     models.UpdateKind    `json:"kind"`
	Location *models.LiveLocation `json:"location,omitempty"`
	LastSeen string               `json:"last_seen,omitempty"`
}

func toTrackingEvent(u models.Update, now time.Time) TrackingEvent {
	event := TrackingEvent{Kind: u.Kind, Location: u.Location}
	if u.Location != nil {
		event.LastSeen = models.LastSeen(u.Location.Timestamp, now)
	}
	return event
}
