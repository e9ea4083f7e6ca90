package service

import (
	"context"
	"errors"

	"givetrack/internal/profile/models"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/platform/sentinel"
	"givetrack/pkg/requestcontext"
)

// EnsureProfile returns uid's profile, creating it with role user on first
// sign-in. Concurrent first sign-ins converge on the same record.
func (s *Service) EnsureProfile(ctx context.Context, uid id.UserID, email, displayName string) (*models.Profile, error) {
	existing, err := s.profiles.FindByID(ctx, uid)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}

	p, err := models.NewProfile(uid, email, displayName, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return s.profiles.FindByID(ctx, uid)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
	}
	if s.metrics != nil {
		s.metrics.IncrementProfilesCreated()
	}
	s.logAudit(ctx, audit.EventProfileCreated, p)
	return p, nil
}

// Me returns the caller's profile, creating it if sign-in hooks have not yet.
func (s *Service) Me(ctx context.Context) (*View, error) {
	uid := requestcontext.UserID(ctx)
	if uid.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	p, err := s.EnsureProfile(ctx, uid, requestcontext.Email(ctx), "")
	if err != nil {
		return nil, err
	}
	return s.view(p), nil
}

// UpdateDisplayName renames the caller on the account and on the profile.
func (s *Service) UpdateDisplayName(ctx context.Context, name string) (*View, error) {
	uid := requestcontext.UserID(ctx)
	if uid.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	name, err := models.ValidateDisplayName(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.EnsureProfile(ctx, uid, requestcontext.Email(ctx), name); err != nil {
		return nil, err
	}
	if s.accounts != nil {
		if err := s.accounts.UpdateDisplayName(ctx, uid, name); err != nil {
			return nil, err
		}
	}
	now := requestcontext.Now(ctx)
	p, err := s.profiles.Execute(ctx, uid,
		func(*models.Profile) error { return nil },
		func(p *models.Profile) { p.Rename(name, now) },
	)
	if err != nil {
		return nil, translateErr(err, "profile")
	}
	return s.view(p), nil
}

// Apply requests partner status for the caller.
func (s *Service) Apply(ctx context.Context) (*View, error) {
	uid := requestcontext.UserID(ctx)
	if uid.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	if _, err := s.EnsureProfile(ctx, uid, requestcontext.Email(ctx), ""); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	p, err := s.profiles.Execute(ctx, uid,
		(*models.Profile).CanApply,
		func(p *models.Profile) { p.ApplyApplication(now) },
	)
	if err != nil {
		return nil, translateErr(err, "profile")
	}
	s.logAudit(ctx, audit.EventPartnerApplied, p)
	return s.view(p), nil
}
