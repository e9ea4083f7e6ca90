// Package store holds the donation persistence backends.
//
// Error contract: lookups of unknown IDs return sentinel.ErrNotFound; Execute
// returns the validate callback's error untouched and writes nothing in that
// case; a write that would give a partner a second delivery In Progress fails
// with sentinel.ErrInvalidState; everything else is an infrastructure failure.
package store

import (
	"context"
	"fmt"
	"sync"

	"givetrack/internal/donation/models"
	id "givetrack/pkg/domain"
	"givetrack/pkg/platform/sentinel"
)

// InMemory keeps donations in a map guarded by one mutex, which also
// serialises Execute callbacks.
type InMemory struct {
	mu        sync.RWMutex
	donations map[id.DonationID]*models.Donation
	order     []id.DonationID
}

func NewInMemory() *InMemory {
	return &InMemory{donations: make(map[id.DonationID]*models.Donation)}
}

func (s *InMemory) Create(_ context.Context, d *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donations[d.ID]; ok {
		return fmt.Errorf("donation %s: %w", d.ID, sentinel.ErrAlreadyUsed)
	}
	s.donations[d.ID] = d.Clone()
	s.order = append(s.order, d.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, donationID id.DonationID) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donations[donationID]
	if !ok {
		return nil, fmt.Errorf("donation %s: %w", donationID, sentinel.ErrNotFound)
	}
	return d.Clone(), nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Donation, error) {
	return s.snapshot(func(*models.Donation) bool { return true }), nil
}

func (s *InMemory) ListAvailable(_ context.Context) ([]*models.Donation, error) {
	return s.snapshot((*models.Donation).IsAvailable), nil
}

func (s *InMemory) ListByPartner(_ context.Context, partner id.UserID) ([]*models.Donation, error) {
	return s.snapshot(func(d *models.Donation) bool { return d.IsAssignedTo(partner) }), nil
}

func (s *InMemory) ListByDonor(_ context.Context, account models.Account) ([]*models.Donation, error) {
	return s.snapshot(func(d *models.Donation) bool { return d.BelongsTo(account) }), nil
}

// FindInProgressByPartner returns the partner's In Progress donation.
func (s *InMemory) FindInProgressByPartner(_ context.Context, partner id.UserID) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.inProgress(partner, id.DonationID{})
	if d == nil {
		return nil, fmt.Errorf("no in-progress donation for %s: %w", partner, sentinel.ErrNotFound)
	}
	return d.Clone(), nil
}

// inProgress must be called with mu held.
func (s *InMemory) inProgress(partner id.UserID, except id.DonationID) *models.Donation {
	for _, donationID := range s.order {
		d := s.donations[donationID]
		if donationID != except && d.IsAssignedTo(partner) && d.Status.Is(models.StatusInProgress) {
			return d
		}
	}
	return nil
}

// Execute runs validate then mutate on a private copy while holding the
// write lock and stores the copy only when validate succeeds.
func (s *InMemory) Execute(_ context.Context, donationID id.DonationID, validate func(*models.Donation) error, mutate func(*models.Donation)) (*models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.donations[donationID]
	if !ok {
		return nil, fmt.Errorf("donation %s: %w", donationID, sentinel.ErrNotFound)
	}
	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	if working.Status.Is(models.StatusInProgress) && !working.AssignedTo.IsNil() {
		if other := s.inProgress(working.AssignedTo, donationID); other != nil {
			return nil, fmt.Errorf("partner %s already delivering %s: %w", working.AssignedTo, other.ID, sentinel.ErrInvalidState)
		}
	}
	s.donations[donationID] = working
	return working.Clone(), nil
}

func (s *InMemory) snapshot(keep func(*models.Donation) bool) []*models.Donation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Donation, 0)
	for _, donationID := range s.order {
		d := s.donations[donationID]
		if keep(d) {
			out = append(out, d.Clone())
		}
	}
	return out
}
