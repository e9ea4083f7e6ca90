package handler

import (
	"strings"
	"time"

	"givetrack/internal/identity/models"
	"givetrack/internal/identity/service"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/email"
)

type SignUpRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Confirmation string `json:"password_confirmation"`
	DisplayName  string `json:"display_name"`
}

func (r *SignUpRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

func (r *SignUpRequest) Validate() error {
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return models.ValidateNewPassword(r.Password, r.Confirmation)
}

func (r *SignUpRequest) Input() service.SignUpInput {
	return service.SignUpInput{
		Email:        r.Email,
		Password:     r.Password,
		Confirmation: r.Confirmation,
		DisplayName:  r.DisplayName,
	}
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SignInRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
}

func (r *SignInRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

type FederatedCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

func (r *FederatedCallbackRequest) Validate() error {
	if r.Code == "" || r.State == "" {
		return dErrors.New(dErrors.CodeValidation, "code and state are required")
	}
	return nil
}

type UpdatePasswordRequest struct {
	Password     string `json:"password"`
	Confirmation string `json:"password_confirmation"`
}

func (r *UpdatePasswordRequest) Validate() error {
	return models.ValidateNewPassword(r.Password, r.Confirmation)
}

type SessionResponse struct {
	Token       string    `json:"token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      id.UserID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
}

type FederatedStartResponse struct {
	AuthURL string `json:"auth_url"`
}

func toSessionResponse(s *models.Session) SessionResponse {
	return SessionResponse{
		Token:       s.Token,
		TokenType:   "Bearer",
		ExpiresAt:   s.ExpiresAt,
		UserID:      s.Account.ID,
		Email:       s.Account.Email,
		DisplayName: s.Account.DisplayName,
	}
}
