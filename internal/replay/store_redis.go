package replay

import (
	"context"
	"fmt"
	"time"

	"attesto/internal/platform/redis"
)

const redisKeyPrefix = "replay:fingerprint:"

// RedisStore backs the replay guard with Redis SET NX + TTL so multiple
// verifier instances share one replay window.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed fingerprint store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// PutIfAbsent inserts the key atomically; Redis expires it after the TTL.
func (s *RedisStore) PutIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	inserted, err := s.client.SetNX(ctx, redisKeyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay fingerprint setnx: %w", err)
	}
	return inserted, nil
}

var _ Store = (*RedisStore)(nil)
