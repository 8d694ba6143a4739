// Package idempotency guards checkout replays with Redis.
package idempotency

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Guard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewGuard(rdb *redis.Client, ttl time.Duration) *Guard {
	return &Guard{rdb: rdb, ttl: ttl}
}

// Claim marks the key as seen. It returns false when the key was already
// claimed inside the TTL window, meaning the request is a replay.
func (g *Guard) Claim(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, "idempotency-key:"+key, 1, g.ttl).Result()
}

// Release frees a claimed key so a failed checkout can be retried with the
// same key.
func (g *Guard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, "idempotency-key:"+key).Err()
}
