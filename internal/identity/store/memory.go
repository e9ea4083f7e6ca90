// Package store persists identity accounts. Emails are unique
// case-insensitively; a taken email or provider subject returns
// sentinel.ErrAlreadyUsed.
package store

import (
	"context"
	"fmt"
	"sync"

	"givetrack/internal/identity/models"
	id "givetrack/pkg/domain"
	"givetrack/pkg/email"
	"givetrack/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	accounts map[id.UserID]*models.Account
}

func NewInMemory() *InMemory {
	return &InMemory{accounts: make(map[id.UserID]*models.Account)}
}

func (s *InMemory) Create(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.ID == a.ID || email.Equal(existing.Email, a.Email) {
			return fmt.Errorf("account %s: %w", a.Email, sentinel.ErrAlreadyUsed)
		}
		if a.Subject != "" && existing.Provider == a.Provider && existing.Subject == a.Subject {
			return fmt.Errorf("account %s/%s: %w", a.Provider, a.Subject, sentinel.ErrAlreadyUsed)
		}
	}
	s.accounts[a.ID] = a.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, uid id.UserID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[uid]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", uid, sentinel.ErrNotFound)
	}
	return a.Clone(), nil
}

func (s *InMemory) FindByEmail(_ context.Context, address string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if email.Equal(a.Email, address) {
			return a.Clone(), nil
		}
	}
	return nil, fmt.Errorf("account with email: %w", sentinel.ErrNotFound)
}

func (s *InMemory) FindBySubject(_ context.Context, provider models.Provider, subject string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Provider == provider && a.Subject == subject && subject != "" {
			return a.Clone(), nil
		}
	}
	return nil, fmt.Errorf("account %s/%s: %w", provider, subject, sentinel.ErrNotFound)
}

// Update applies mutate to the stored account under the write lock.
func (s *InMemory) Update(_ context.Context, uid id.UserID, mutate func(*models.Account)) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.accounts[uid]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", uid, sentinel.ErrNotFound)
	}
	a := current.Clone()
	mutate(a)
	s.accounts[uid] = a
	return a.Clone(), nil
}
