// Package cache holds read-through caches for dashboard listings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys shared by the agents and numbers services. Writes in either service
// invalidate both.
const (
	KeyAgents           = "listing:agents"
	KeyPhoneNumbers     = "listing:phone_numbers"
	KeyAvailableNumbers = "listing:phone_numbers:available"
)

// ListingKeys are invalidated together after any agent or number write.
var ListingKeys = []string{KeyAgents, KeyPhoneNumbers, KeyAvailableNumbers}

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// GetOrLoad returns the cached JSON value for key, or calls load and caches
// its result. Cache failures fall through to load.
func GetOrLoad[T any](ctx context.Context, s Store, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if s != nil {
		if b, ok, err := s.Get(ctx, key); err == nil && ok {
			var v T
			if err := json.Unmarshal(b, &v); err == nil {
				return v, nil
			}
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if s != nil {
		if b, err := json.Marshal(v); err == nil {
			_ = s.Set(ctx, key, b, ttl)
		}
	}
	return v, nil
}

// Invalidate drops every listing key. A nil store is a no-op.
func Invalidate(ctx context.Context, s Store) error {
	if s == nil {
		return nil
	}
	return s.Delete(ctx, ListingKeys...)
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, val, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

type memoryEntry struct {
	val       []byte
	expiresAt time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, clock: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && s.clock().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expiresAt = s.clock().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}
