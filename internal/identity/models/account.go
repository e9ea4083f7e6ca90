// Package models holds identity accounts and the auth state observers see.
package models

import (
	"strings"
	"time"

	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
	"givetrack/pkg/email"
)

type Provider string

const (
	ProviderPassword Provider = "password"
	ProviderGoogle   Provider = "google"
)

const (
	MinPasswordLength  = 6
	maxPasswordLength  = 72 // bcrypt input limit
	maxDisplayNameSize = 100
)

// Account is a sign-in identity. PasswordHash is empty for accounts that
// only sign in through a federated provider.
type Account struct {
	ID           id.UserID
	Email        string
	DisplayName  string
	PasswordHash string
	Provider     Provider
	Subject      string
	CreatedAt    time.Time
}

// HasPassword reports whether credential sign-in is possible.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func NewPasswordAccount(address, displayName, passwordHash string, now time.Time) (*Account, error) {
	address = email.Normalize(address)
	if address == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !email.Valid(address) {
		return nil, dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	return &Account{
		ID:           id.NewUserID(),
		Email:        address,
		DisplayName:  displayNameOrDerived(displayName, address),
		PasswordHash: passwordHash,
		Provider:     ProviderPassword,
		CreatedAt:    now,
	}, nil
}

// NewFederatedAccount creates an account from a provider-verified identity.
func NewFederatedAccount(fed FederatedIdentity, now time.Time) (*Account, error) {
	address := email.Normalize(fed.Email)
	if address == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "provider did not return an email")
	}
	if fed.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "provider did not return a subject")
	}
	return &Account{
		ID:          id.NewUserID(),
		Email:       address,
		DisplayName: displayNameOrDerived(fed.DisplayName, address),
		Provider:    fed.Provider,
		Subject:     fed.Subject,
		CreatedAt:   now,
	}, nil
}

func displayNameOrDerived(name, address string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return email.DeriveDisplayName(address)
	}
	if len(name) > maxDisplayNameSize {
		return name[:maxDisplayNameSize]
	}
	return name
}

// ValidateDisplayName trims name and rejects empty or oversized values.
func ValidateDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", dErrors.New(dErrors.CodeValidation, "display name is required")
	}
	if len(name) > maxDisplayNameSize {
		return "", dErrors.New(dErrors.CodeValidation, "display name is too long")
	}
	return name, nil
}

// ValidateNewPassword checks a password and its confirmation.
func ValidateNewPassword(password, confirmation string) error {
	if len(password) < MinPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 6 characters")
	}
	if len(password) > maxPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password is too long")
	}
	if password != confirmation {
		return dErrors.New(dErrors.CodeValidation, "passwords do not match")
	}
	return nil
}

// FederatedIdentity is what a provider vouches for after a code exchange.
type FederatedIdentity struct {
	Provider    Provider
	Subject     string
	Email       string
	DisplayName string
}

// AuthState is delivered to observers on sign-in. Sign-out delivers nil.
type AuthState struct {
	UserID      id.UserID
	Email       string
	DisplayName string
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string
	SessionID id.SessionID
	ExpiresAt time.Time
	Account   *Account
}
