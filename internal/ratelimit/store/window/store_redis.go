package window

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:window:"

// incrScript increments the key and attaches the window TTL on first use so
// increment and expiry are one atomic step. Returns the count and the
// remaining TTL in milliseconds.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RedisWindowStore implements WindowStore on a shared Redis so fixed-window
// counters are global across instances.
type RedisWindowStore struct {
	client redis.Cmdable
}

// NewRedis creates a Redis-backed window store.
func NewRedis(client redis.Cmdable) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func (s *RedisWindowStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	res, err := incrScript.Run(ctx, s.client, []string{redisKeyPrefix + key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis window incr: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, time.Time{}, fmt.Errorf("redis window incr: unexpected reply %v", res)
	}
	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	if ttlMs < 0 {
		// Key exists without TTL (should not happen); treat as full window.
		ttlMs = window.Milliseconds()
	}

	return int(count), time.Now().Add(time.Duration(ttlMs) * time.Millisecond), nil
}

func (s *RedisWindowStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis window reset: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op for Redis; keys expire via TTL.
func (s *RedisWindowStore) PurgeExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
