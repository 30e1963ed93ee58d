package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps a backend failure.
var ErrUnavailable = errors.New("revocation backend unavailable")

// DefaultPrefix namespaces denylist keys.
const DefaultPrefix = "tk:revoked"

// RedisStore is a Redis-backed denylist. Each revoked identifier is a key whose TTL is the
// token's remaining lifetime.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a store using client. An empty prefix selects DefaultPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock replaces the time source used to compute TTLs.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.SetClock(now)
	return s
}

// SetClock replaces the time source used to compute TTLs. tokenkit.Builder calls it with
// the engine clock; it must not race with Revoke.
func (s *RedisStore) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *RedisStore) key(tokenID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, tokenID)
}

// Revoke records tokenID until until. A token that has already expired is not recorded.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return errors.New("token id must not be empty")
	}
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	// Sub-second remainders round up so the entry never lapses before the token does.
	if rem := ttl % time.Second; rem != 0 {
		ttl += time.Second - rem
	}
	if err := s.client.Set(ctx, s.key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether tokenID has a live entry.
func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}
