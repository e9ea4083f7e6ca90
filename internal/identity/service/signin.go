package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"givetrack/internal/identity/models"
	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	audit "givetrack/pkg/platform/audit"
	"givetrack/pkg/platform/middleware/metadata"
	"givetrack/pkg/platform/sentinel"
	"givetrack/pkg/requestcontext"
)

const (
	methodPassword = "password"
	methodSignUp   = "signup"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

type SignUpInput struct {
	Email        string
	Password     string
	Confirmation string
	DisplayName  string
}

// SignUp creates a credential account and signs it in.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.Session, error) {
	if err := models.ValidateNewPassword(in.Password, in.Confirmation); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	account, err := models.NewPasswordAccount(in.Email, in.DisplayName, string(hash), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.countSignIn(methodSignUp, outcomeFailure)
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}
	s.logAudit(ctx, audit.EventAccountCreated, account.ID, account.Email, "")
	return s.startSession(ctx, account, methodSignUp)
}

// SignIn checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
		}
		s.authFailure(ctx, methodPassword, id.UserID{}, email, "unknown_email")
		return nil, errInvalidCredentials
	}
	if !account.HasPassword() {
		s.authFailure(ctx, methodPassword, account.ID, email, "no_password")
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.authFailure(ctx, methodPassword, account.ID, email, "wrong_password")
		return nil, errInvalidCredentials
	}
	return s.startSession(ctx, account, methodPassword)
}

// FederatedStart returns the provider URL the client should visit.
func (s *Service) FederatedStart(ctx context.Context, provider string) (string, error) {
	p, ok := s.providers[models.Provider(provider)]
	if !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "unknown sign-in provider")
	}
	state, err := s.tokens.IssueState(provider, requestcontext.Now(ctx))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue state")
	}
	return p.AuthCodeURL(state), nil
}

// FederatedCallback completes the code exchange. A verified email that
// already has an account signs into that account.
func (s *Service) FederatedCallback(ctx context.Context, provider, code, state string) (*models.Session, error) {
	p, ok := s.providers[models.Provider(provider)]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown sign-in provider")
	}
	if err := s.tokens.ValidateState(state, provider); err != nil {
		s.authFailure(ctx, provider, id.UserID{}, "", "bad_state")
		return nil, err
	}
	fed, err := p.Exchange(ctx, code)
	if err != nil {
		s.authFailure(ctx, provider, id.UserID{}, "", "exchange_failed")
		return nil, err
	}

	account, err := s.federatedAccount(ctx, fed)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, account, provider)
}

func (s *Service) federatedAccount(ctx context.Context, fed *models.FederatedIdentity) (*models.Account, error) {
	account, err := s.accounts.FindBySubject(ctx, fed.Provider, fed.Subject)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	account, err = s.accounts.FindByEmail(ctx, fed.Email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	account, err = models.NewFederatedAccount(*fed, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return s.accounts.FindBySubject(ctx, fed.Provider, fed.Subject)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}
	s.logAudit(ctx, audit.EventAccountCreated, account.ID, account.Email, string(fed.Provider))
	return account, nil
}

func (s *Service) startSession(ctx context.Context, account *models.Account, method string) (*models.Session, error) {
	sessionID := id.NewSessionID()
	signed, expiresAt, err := s.tokens.IssueSession(account.ID, sessionID, account.Email, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session")
	}
	s.countSignIn(method, outcomeSuccess)
	s.logAudit(ctx, audit.EventSessionCreated, account.ID, account.Email, method+" via "+metadata.DeviceLabel(ctx))
	s.notify(ctx, &models.AuthState{
		UserID:      account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
	})
	return &models.Session{
		Token:     signed,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
		Account:   account,
	}, nil
}

func (s *Service) countSignIn(method, outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementSignIn(method, outcome)
	}
}
