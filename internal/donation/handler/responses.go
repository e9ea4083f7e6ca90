package handler

import (
	"time"

	"givetrack/internal/donation/models"
	"givetrack/internal/donation/service"
	locmodels "givetrack/internal/location/models"
	id "givetrack/pkg/domain"
)

type DonationResponse struct {
	ID              id.DonationID      `json:"id"`
	Category        string             `json:"category"`
	Quantity        string             `json:"quantity,omitempty"`
	Name            string             `json:"name"`
	Phone           string             `json:"phone,omitempty"`
	Email           string             `json:"email,omitempty"`
	Address         string             `json:"address,omitempty"`
	Latitude        *float64           `json:"lat,omitempty"`
	Longitude       *float64           `json:"lng,omitempty"`
	Message         string             `json:"message,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
	UserID          *id.UserID         `json:"user_id,omitempty"`
	LinkedUserEmail string             `json:"linked_user_email,omitempty"`
	Status          models.Status      `json:"status"`
	StatusClass     models.StatusClass `json:"status_class"`
	AssignedTo      *id.UserID         `json:"assigned_to,omitempty"`
	AssignedBy      *id.UserID         `json:"assigned_by,omitempty"`
	AssignedTime    *time.Time         `json:"assigned_time,omitempty"`
	StartTime       *time.Time         `json:"start_time,omitempty"`
	CompletedTime   *time.Time         `json:"completed_time,omitempty"`
	RejectedTime    *time.Time         `json:"rejected_time,omitempty"`
	ReceivedTime    *time.Time         `json:"received_time,omitempty"`
}

func toDonationResponse(d *models.Donation) DonationResponse {
	return DonationResponse{
		ID:              d.ID,
		Category:        d.Category,
		Quantity:        d.Quantity,
		Name:            d.Name,
		Phone:           d.Phone,
		Email:           d.Email,
		Address:         d.Address,
		Latitude:        d.Latitude,
		Longitude:       d.Longitude,
		Message:         d.Message,
		Timestamp:       d.Timestamp,
		UserID:          optionalUser(d.UserID),
		LinkedUserEmail: d.LinkedUserEmail,
		Status:          d.Status.Canonical(),
		StatusClass:     d.Class(),
		AssignedTo:      optionalUser(d.AssignedTo),
		AssignedBy:      optionalUser(d.AssignedBy),
		AssignedTime:    d.AssignedTime,
		StartTime:       d.StartTime,
		CompletedTime:   d.CompletedTime,
		RejectedTime:    d.RejectedTime,
		ReceivedTime:    d.ReceivedTime,
	}
}

func toDonationList(donations []*models.Donation) []DonationResponse {
	out := make([]DonationResponse, 0, len(donations))
	for _, d := range donations {
		out = append(out, toDonationResponse(d))
	}
	return out
}

func optionalUser(u id.UserID) *id.UserID {
	if u.IsNil() {
		return nil
	}
	return &u
}

type StartResponse struct {
	Donation       DonationResponse `json:"donation"`
	LocationStatus locmodels.Status `json:"location_status"`
}

func toStartResponse(res *service.StartResult) StartResponse {
	return StartResponse{
		Donation:       toDonationResponse(res.Donation),
		LocationStatus: res.LocationStatus,
	}
}

type TasksResponse struct {
	Available []DonationResponse `json:"available"`
	Active    []DonationResponse `json:"active"`
	History   []DonationResponse `json:"history"`
}

type AdminOverviewResponse struct {
	Donations []DonationResponse `json:"donations"`
	Metrics   models.Metrics     `json:"metrics"`
}

type DonationListResponse struct {
	Donations []DonationResponse `json:"donations"`
}
