package revocation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore is an in-process denylist. It prunes expired entries whenever a new one is
// recorded.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore returns an empty store on the system clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock replaces the time source used for expiry.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.SetClock(now)
	return s
}

// SetClock replaces the time source used for expiry. tokenkit.Builder calls it with the
// engine clock.
func (s *MemoryStore) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Revoke records tokenID until until. An until already in the past is not recorded.
func (s *MemoryStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return errors.New("token id must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.entries {
		if !exp.After(now) {
			delete(s.entries, id)
		}
	}
	if until.After(now) {
		s.entries[tokenID] = until
	}
	return nil
}

// IsRevoked reports whether tokenID has an entry that has not lapsed.
func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.entries[tokenID]
	if !ok {
		return false, nil
	}
	return exp.After(s.now()), nil
}

// Len returns the number of stored entries, including lapsed ones not yet pruned.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
