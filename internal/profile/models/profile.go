package models

import (
	"strings"
	"time"

	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/email"
)

// Role is the stored role of a profile. Administrators are not a stored role;
// RoleAdmin only appears in responses.
type Role string

const (
	RoleUser            Role = "user"
	RolePendingDelivery Role = "pending_delivery"
	RoleDelivery        Role = "delivery"
	RoleAdmin           Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RolePendingDelivery, RoleDelivery:
		return true
	}
	return false
}

// Profile is created on first sign-in and never deleted.
type Profile struct {
	UID         id.UserID
	DisplayName string
	Email       string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const maxDisplayName = 100

func NewProfile(uid id.UserID, address, displayName string, now time.Time) (*Profile, error) {
	if uid.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	address = email.Normalize(address)
	if address == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = email.DeriveDisplayName(address)
	}
	return &Profile{
		UID:         uid,
		DisplayName: displayName,
		Email:       address,
		Role:        RoleUser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ValidateDisplayName trims name and rejects empty or oversized values.
func ValidateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", dErrors.New(dErrors.CodeValidation, "display name is required")
	}
	if len(name) > maxDisplayName {
		return "", dErrors.New(dErrors.CodeValidation, "display name is too long")
	}
	return name, nil
}

func (p *Profile) IsPartner() bool {
	return p.Role == RoleDelivery
}

// EffectiveRole is the role shown to clients.
func (p *Profile) EffectiveRole(isAdmin bool) Role {
	if isAdmin {
		return RoleAdmin
	}
	return p.Role
}

func (p *Profile) CanApply() error {
	if p.Role != RoleUser {
		return dErrors.New(dErrors.CodeInvariantViolation, "only ordinary users can apply to deliver")
	}
	return nil
}

func (p *Profile) ApplyApplication(now time.Time) {
	p.setRole(RolePendingDelivery, now)
}

func (p *Profile) CanApprove() error {
	if p.Role != RolePendingDelivery {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending applicants can be approved")
	}
	return nil
}

func (p *Profile) ApplyApproval(now time.Time) {
	p.setRole(RoleDelivery, now)
}

func (p *Profile) CanRejectApplication() error {
	if p.Role != RolePendingDelivery {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending applicants can be rejected")
	}
	return nil
}

func (p *Profile) ApplyApplicationRejection(now time.Time) {
	p.setRole(RoleUser, now)
}

func (p *Profile) CanDemote() error {
	if p.Role != RoleDelivery {
		return dErrors.New(dErrors.CodeInvariantViolation, "only delivery partners can be demoted")
	}
	return nil
}

func (p *Profile) ApplyDemotion(now time.Time) {
	p.setRole(RoleUser, now)
}

// ApplyPromotion grants the delivery role from any stored role.
func (p *Profile) ApplyPromotion(now time.Time) {
	p.setRole(RoleDelivery, now)
}

func (p *Profile) Rename(name string, now time.Time) {
	p.DisplayName = name
	p.UpdatedAt = now
}

func (p *Profile) setRole(role Role, now time.Time) {
	p.Role = role
	p.UpdatedAt = now
}

func (p *Profile) Clone() *Profile {
	c := *p
	return &c
}
