package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig controls the shared client used for listing cache, sessions
// and the provisioning lock. Zero values take the defaults below.
type RedisConfig struct {
	Addr string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	PingTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	out := c
	if out.DialTimeout <= 0 {
		out.DialTimeout = 3 * time.Second
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 2 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 2 * time.Second
	}
	if out.PoolSize <= 0 {
		out.PoolSize = 20
	}
	if out.MinIdleConns < 0 {
		out.MinIdleConns = 0
	}
	if out.PoolTimeout <= 0 {
		out.PoolTimeout = 4 * time.Second
	}
	if out.ConnMaxIdleTime <= 0 {
		out.ConnMaxIdleTime = 5 * time.Minute
	}
	if out.ConnMaxLifetime <= 0 {
		out.ConnMaxLifetime = 30 * time.Minute
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 2 * time.Second
	}
	return out
}

// OpenRedis connects and fails fast when the server does not answer PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// lockReleaseScript deletes KEYS[1] only while it still holds ARGV[1], so a
// holder whose TTL lapsed cannot release a lock taken by someone else.
var lockReleaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// AcquireLock takes key for ttl and returns the owner token to release it with.
// ok is false when another holder has the key.
func AcquireLock(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (token string, ok bool, err error) {
	if rdb == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		return "", false, fmt.Errorf("key is required")
	}
	if ttl <= 0 {
		return "", false, fmt.Errorf("ttl must be > 0")
	}

	token = uuid.NewString()
	ok, err = rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseLock frees key if token still owns it. released is false when the
// lock already expired or changed hands.
func ReleaseLock(ctx context.Context, rdb *redis.Client, key, token string) (released bool, err error) {
	if rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if key == "" || token == "" {
		return false, fmt.Errorf("key and token are required")
	}
	n, err := lockReleaseScript.Run(ctx, rdb, []string{key}, token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RedisLock is a single-holder lock with an owner token per acquire.
// TTL bounds how long a crashed holder blocks others.
type RedisLock struct {
	Client *redis.Client
	TTL    time.Duration
}

// TryLock reports whether the caller now holds key, with its owner token.
func (l RedisLock) TryLock(ctx context.Context, key string) (string, bool, error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return AcquireLock(ctx, l.Client, key, ttl)
}

// Unlock releases key when token still owns it. A lapsed lock is not an error.
func (l RedisLock) Unlock(ctx context.Context, key, token string) error {
	_, err := ReleaseLock(ctx, l.Client, key, token)
	return err
}
