package service

import (
	"context"
	"strings"
	"time"

	"givetrack/internal/profile/models"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/requestcontext"
)

// Approve moves a pending applicant to the delivery role.
func (s *Service) Approve(ctx context.Context, uid id.UserID) (*models.Profile, error) {
	return s.changeRole(ctx, uid, audit.EventPartnerApproved,
		(*models.Profile).CanApprove, (*models.Profile).ApplyApproval)
}

// RejectApplication returns a pending applicant to the user role.
func (s *Service) RejectApplication(ctx context.Context, uid id.UserID) (*models.Profile, error) {
	return s.changeRole(ctx, uid, audit.EventApplicationRejected,
		(*models.Profile).CanRejectApplication, (*models.Profile).ApplyApplicationRejection)
}

// Demote removes the delivery role.
func (s *Service) Demote(ctx context.Context, uid id.UserID) (*models.Profile, error) {
	return s.changeRole(ctx, uid, audit.EventPartnerDemoted,
		(*models.Profile).CanDemote, (*models.Profile).ApplyDemotion)
}

// PromoteByEmail grants the delivery role to whoever signed in with email.
// Nobody is pre-provisioned: an unknown email is not found and nothing is
// written.
func (s *Service) PromoteByEmail(ctx context.Context, email string) (*models.Profile, error) {
	if strings.TrimSpace(email) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	target, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		return nil, translateErr(err, "profile")
	}
	return s.changeRole(ctx, target.UID, audit.EventPartnerPromoted,
		func(*models.Profile) error { return nil }, (*models.Profile).ApplyPromotion)
}

func (s *Service) ListPartners(ctx context.Context) ([]*models.Profile, error) {
	return s.listByRole(ctx, models.RoleDelivery)
}

func (s *Service) ListApplicants(ctx context.Context) ([]*models.Profile, error) {
	return s.listByRole(ctx, models.RolePendingDelivery)
}

func (s *Service) listByRole(ctx context.Context, role models.Role) ([]*models.Profile, error) {
	profiles, err := s.profiles.ListByRole(ctx, role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profiles")
	}
	return profiles, nil
}

func (s *Service) changeRole(ctx context.Context, uid id.UserID, event audit.AuditEvent, validate func(*models.Profile) error, apply func(*models.Profile, time.Time)) (*models.Profile, error) {
	now := requestcontext.Now(ctx)
	p, err := s.profiles.Execute(ctx, uid, validate, func(p *models.Profile) { apply(p, now) })
	if err != nil {
		return nil, translateErr(err, "profile")
	}
	s.logAudit(ctx, event, p)
	return p, nil
}
