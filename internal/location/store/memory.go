package store

import (
	"context"
	"sync"

	"givetrack/internal/location/models"
	id "givetrack/pkg/domain"
	"givetrack/pkg/platform/sentinel"
)

// InMemory is the single-process backend used in development and tests.
type InMemory struct {
	mu          sync.Mutex
	locations   map[id.UserID]models.LiveLocation
	subscribers map[id.UserID]map[*memorySubscriber]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{
		locations:   make(map[id.UserID]models.LiveLocation),
		subscribers: make(map[id.UserID]map[*memorySubscriber]struct{}),
	}
}

// Put overwrites the partner's record and notifies subscribers.
func (s *InMemory) Put(_ context.Context, loc *models.LiveLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[loc.PartnerID] = *loc
	stored := *loc
	s.broadcast(loc.PartnerID, models.PositionUpdate(&stored))
	return nil
}

func (s *InMemory) Get(_ context.Context, partner id.UserID) (*models.LiveLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.locations[partner]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &loc, nil
}

// Delete removes the record. Subscribers get an offline update even when
// there was nothing to remove.
func (s *InMemory) Delete(_ context.Context, partner id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locations, partner)
	s.broadcast(partner, models.OfflineUpdate())
	return nil
}

// Subscribe registers a feed. The current record, if any, is delivered first.
func (s *InMemory) Subscribe(_ context.Context, partner id.UserID) (Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &memorySubscriber{
		store:   s,
		partner: partner,
		updates: make(chan models.Update, updateBuffer),
	}
	if s.subscribers[partner] == nil {
		s.subscribers[partner] = make(map[*memorySubscriber]struct{})
	}
	s.subscribers[partner][sub] = struct{}{}
	if loc, ok := s.locations[partner]; ok {
		sub.updates <- models.PositionUpdate(&loc)
	}
	return sub, nil
}

// SubscriberCount reports open feeds for partner.
func (s *InMemory) SubscriberCount(partner id.UserID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers[partner])
}

// broadcast must be called with mu held.
func (s *InMemory) broadcast(partner id.UserID, u models.Update) {
	for sub := range s.subscribers[partner] {
		offer(sub.updates, u)
	}
}

func (s *InMemory) unsubscribe(sub *memorySubscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs, ok := s.subscribers[sub.partner]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(s.subscribers, sub.partner)
	}
	close(sub.updates)
}

type memorySubscriber struct {
	store   *InMemory
	partner id.UserID
	updates chan models.Update
	once    sync.Once
}

func (m *memorySubscriber) Updates() <-chan models.Update {
	return m.updates
}

func (m *memorySubscriber) Close() error {
	m.once.Do(func() { m.store.unsubscribe(m) })
	return nil
}
