package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore keeps sessions as JSON values with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Put(ctx context.Context, info Info, ttl time.Duration) error {
	b, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyPrefix+info.SessionID, b, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (Info, bool, error) {
	b, err := s.rdb.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Info{}, false, nil
		}
		return Info{}, false, err
	}
	var info Info
	if err := json.Unmarshal(b, &info); err != nil {
		return Info{}, false, err
	}
	return info, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, keyPrefix+sessionID).Err()
}

// MemoryStore is an in-process store for tests and local runs.
// Expiry is left to Manager.Touch.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Info
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{sessions: map[string]Info{}} }

func (s *MemoryStore) Put(ctx context.Context, info Info, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[info.SessionID] = info
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (Info, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.sessions[sessionID]
	return info, ok, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
