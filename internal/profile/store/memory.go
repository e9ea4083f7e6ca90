// Package store persists profiles. Unknown UIDs and emails return
// sentinel.ErrNotFound; Execute returns validate's error untouched and
// writes nothing in that case.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"givetrack/internal/profile/models"
	id "givetrack/pkg/domain"
	"givetrack/pkg/email"
	"givetrack/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	profiles map[id.UserID]*models.Profile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[id.UserID]*models.Profile)}
}

func (s *InMemory) Create(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.UID]; ok {
		return fmt.Errorf("profile %s: %w", p.UID, sentinel.ErrAlreadyUsed)
	}
	s.profiles[p.UID] = p.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, uid id.UserID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[uid]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", uid, sentinel.ErrNotFound)
	}
	return p.Clone(), nil
}

// FindByEmail matches case-insensitively. With duplicates the oldest profile wins.
func (s *InMemory) FindByEmail(_ context.Context, address string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.Profile
	for _, p := range s.profiles {
		if !email.Equal(p.Email, address) {
			continue
		}
		if found == nil || p.CreatedAt.Before(found.CreatedAt) {
			found = p
		}
	}
	if found == nil {
		return nil, fmt.Errorf("profile with email: %w", sentinel.ErrNotFound)
	}
	return found.Clone(), nil
}

// ListByRole returns matching profiles ordered by display name.
func (s *InMemory) ListByRole(_ context.Context, role models.Role) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Profile, 0)
	for _, p := range s.profiles {
		if p.Role == role {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, uid id.UserID, validate func(*models.Profile) error, mutate func(*models.Profile)) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.profiles[uid]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", uid, sentinel.ErrNotFound)
	}
	p := current.Clone()
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	s.profiles[uid] = p
	return p.Clone(), nil
}
