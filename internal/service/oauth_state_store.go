package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// OAuthStateStore persists pending authorization states between the
// redirect to the provider and the callback. A state is consumable
// exactly once and expires after its TTL.
type OAuthStateStore interface {
	Save(ctx context.Context, state string, ttl time.Duration) error
	// Consume removes the state and reports whether it was present and
	// unexpired. A second consume of the same state returns false.
	Consume(ctx context.Context, state string) (bool, error)
}

type RedisOAuthStateStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisOAuthStateStore(client redis.UniversalClient, prefix string) *RedisOAuthStateStore {
	if prefix == "" {
		prefix = "oauthstate"
	}
	return &RedisOAuthStateStore{client: client, prefix: prefix}
}

func (s *RedisOAuthStateStore) key(state string) string {
	return s.prefix + ":" + state
}

func (s *RedisOAuthStateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(state), "1", ttl).Err()
}

func (s *RedisOAuthStateStore) Consume(ctx context.Context, state string) (bool, error) {
	// GETDEL makes lookup and removal one atomic step.
	_, err := s.client.GetDel(ctx, s.key(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MemoryOAuthStateStore keeps pending states in process memory. It is
// the fallback when no redis address is configured; states do not
// survive a restart.
type MemoryOAuthStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

func NewMemoryOAuthStateStore() *MemoryOAuthStateStore {
	return &MemoryOAuthStateStore{
		states: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (s *MemoryOAuthStateStore) Save(_ context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.states[state] = s.now().Add(ttl)
	return nil
}

func (s *MemoryOAuthStateStore) Consume(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.states[state]
	if !ok {
		return false, nil
	}
	delete(s.states, state)
	if s.now().After(expiresAt) {
		return false, nil
	}
	return true, nil
}

func (s *MemoryOAuthStateStore) pruneLocked() {
	now := s.now()
	for state, expiresAt := range s.states {
		if now.After(expiresAt) {
			delete(s.states, state)
		}
	}
}
