package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"givetrack/internal/identity/models"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/platform/sentinel"
	"givetrack/pkg/requestcontext"
)

// SignOut revokes the caller's session for the rest of its lifetime.
func (s *Service) SignOut(ctx context.Context) error {
	userID := requestcontext.UserID(ctx)
	sessionID := requestcontext.SessionID(ctx)
	if userID.IsNil() || sessionID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	if err := s.revocations.Revoke(ctx, sessionID, s.tokens.SessionTTL()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke session")
	}
	if s.metrics != nil {
		s.metrics.IncrementSignOut()
	}
	s.logAudit(ctx, audit.EventSessionRevoked, userID, requestcontext.Email(ctx), "")
	s.notify(ctx, nil)
	return nil
}

// UpdateDisplayName renames the account.
func (s *Service) UpdateDisplayName(ctx context.Context, uid id.UserID, name string) error {
	name, err := models.ValidateDisplayName(name)
	if err != nil {
		return err
	}
	account, err := s.accounts.Update(ctx, uid, func(a *models.Account) { a.DisplayName = name })
	if err != nil {
		return translateAccountErr(err)
	}
	s.logAudit(ctx, audit.EventDisplayNameChanged, account.ID, account.Email, "")
	return nil
}

// UpdatePassword sets a new password. It requires a sign-in within the
// recent-login window; older sessions get reauth_required and must sign in
// again.
func (s *Service) UpdatePassword(ctx context.Context, password, confirmation string) error {
	uid := requestcontext.UserID(ctx)
	if uid.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "sign-in required")
	}
	if err := models.ValidateNewPassword(password, confirmation); err != nil {
		return err
	}
	authTime := requestcontext.AuthTime(ctx)
	if authTime.IsZero() || requestcontext.Now(ctx).Sub(authTime) > s.recentLoginWindow {
		return dErrors.New(dErrors.CodeReauthRequired, "recent sign-in required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	account, err := s.accounts.Update(ctx, uid, func(a *models.Account) { a.PasswordHash = string(hash) })
	if err != nil {
		return translateAccountErr(err)
	}
	s.logAudit(ctx, audit.EventPasswordChanged, account.ID, account.Email, "")
	return nil
}

func translateAccountErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "account not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update account")
}
