package handler

import (
	"strings"

	"givetrack/internal/donation/models"
	locmodels "givetrack/internal/location/models"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/email"
)

const (
	maxFieldLength   = 200
	maxMessageLength = 2000
)

type SubmitDonationRequest struct {
	Category  string   `json:"category"`
	Quantity  string   `json:"quantity"`
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"lat,omitempty"`
	Longitude *float64 `json:"lng,omitempty"`
	Message   string   `json:"message"`
}

func (r *SubmitDonationRequest) Normalize() {
	r.Category = strings.TrimSpace(r.Category)
	r.Quantity = strings.TrimSpace(r.Quantity)
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = email.Normalize(r.Email)
	r.Address = strings.TrimSpace(r.Address)
	r.Message = strings.TrimSpace(r.Message)
}

// Validate enforces size limits only; the field rules live in models.NewDonation.
func (r *SubmitDonationRequest) Validate() error {
	for _, f := range []string{r.Category, r.Quantity, r.Name, r.Phone, r.Email, r.Address} {
		if len(f) > maxFieldLength {
			return dErrors.New(dErrors.CodeValidation, "field exceeds maximum length")
		}
	}
	if len(r.Message) > maxMessageLength {
		return dErrors.New(dErrors.CodeValidation, "message exceeds maximum length")
	}
	return nil
}

func (r *SubmitDonationRequest) Submission() models.Submission {
	return models.Submission{
		Category:  r.Category,
		Quantity:  r.Quantity,
		Name:      r.Name,
		Phone:     r.Phone,
		Email:     r.Email,
		Address:   r.Address,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Message:   r.Message,
	}
}

// StartRequest optionally carries the partner's position at start.
type StartRequest struct {
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`
}

func (r *StartRequest) Validate() error {
	if (r.Lat == nil) != (r.Lng == nil) {
		return dErrors.New(dErrors.CodeValidation, "lat and lng must be provided together")
	}
	if r.Lat != nil {
		return r.Position().Validate()
	}
	return nil
}

// Position returns nil when no coordinates were sent.
func (r *StartRequest) Position() *locmodels.Position {
	if r.Lat == nil || r.Lng == nil {
		return nil
	}
	return &locmodels.Position{Lat: *r.Lat, Lng: *r.Lng}
}

type AssignRequest struct {
	PartnerID string `json:"partner_id"`

	partner id.UserID
}

func (r *AssignRequest) Normalize() {
	r.PartnerID = strings.TrimSpace(r.PartnerID)
}

func (r *AssignRequest) Validate() error {
	if r.PartnerID == "" {
		return dErrors.New(dErrors.CodeValidation, "partner_id is required")
	}
	partner, err := id.ParseUserID(r.PartnerID)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "partner_id is not a valid user id")
	}
	r.partner = partner
	return nil
}
