// Package revocation records signed-out sessions until their tokens expire.
package revocation

import (
	"context"
	"errors"
	"sync"
	"time"

	id "givetrack/pkg/domain"
)

// ErrInvalidTTL is returned by Revoke for a zero or negative ttl.
var ErrInvalidTTL = errors.New("ttl must be positive")

type Clock func() time.Time

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}

// InMemory is a process-local revocation list for single-instance setups.
type InMemory struct {
	mu      sync.Mutex
	revoked map[id.SessionID]time.Time
	clock   Clock
}

type InMemoryOption func(*InMemory)

func WithClock(clock Clock) InMemoryOption {
	return func(l *InMemory) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	l := &InMemory{revoked: make(map[id.SessionID]time.Time), clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *InMemory) Revoke(_ context.Context, sessionID id.SessionID, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	for sid, expiresAt := range l.revoked {
		if now.After(expiresAt) {
			delete(l.revoked, sid)
		}
	}
	l.revoked[sessionID] = now.Add(ttl)
	return nil
}

func (l *InMemory) IsRevoked(_ context.Context, sessionID id.SessionID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	expiresAt, ok := l.revoked[sessionID]
	if !ok {
		return false, nil
	}
	return !l.clock().After(expiresAt), nil
}
