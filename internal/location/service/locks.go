package service

import (
	"sync"

	id "givetrack/pkg/domain"
)

// partnerLocks serialises publication and removal of one partner's record.
// Entries are dropped when no caller holds or waits for them.
type partnerLocks struct {
	mu      sync.Mutex
	entries map[id.UserID]*partnerLock
}

type partnerLock struct {
	sync.Mutex
	refs int
}

func newPartnerLocks() *partnerLocks {
	return &partnerLocks{entries: make(map[id.UserID]*partnerLock)}
}

func (l *partnerLocks) lock(partner id.UserID) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.entries[partner]
	if !ok {
		entry = &partnerLock{}
		l.entries[partner] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, partner)
		}
		l.mu.Unlock()
	}
}
