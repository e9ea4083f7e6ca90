package handler

import (
	"strings"
	"time"

	"givetrack/internal/profile/models"
	"givetrack/internal/profile/service"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/email"
)

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
}

func (r *UpdateProfileRequest) Normalize() {
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

func (r *UpdateProfileRequest) Validate() error {
	if r.DisplayName == "" {
		return dErrors.New(dErrors.CodeValidation, "display_name is required")
	}
	return nil
}

type PromoteRequest struct {
	Email string `json:"email"`
}

func (r *PromoteRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
}

func (r *PromoteRequest) Validate() error {
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !email.Valid(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	return nil
}

type ProfileResponse struct {
	UID         id.UserID   `json:"uid"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// MeResponse reports the effective role; administrators see "admin".
type MeResponse struct {
	ProfileResponse
	IsAdmin bool `json:"is_admin"`
}

type ProfileListResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
}

func toProfileResponse(p *models.Profile) ProfileResponse {
	return ProfileResponse{
		UID:         p.UID,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		Role:        p.Role,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toMeResponse(v *service.View) MeResponse {
	resp := MeResponse{ProfileResponse: toProfileResponse(v.Profile), IsAdmin: v.IsAdmin}
	resp.Role = v.Role
	return resp
}

func toProfileList(profiles []*models.Profile) []ProfileResponse {
	out := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toProfileResponse(p))
	}
	return out
}
