package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "thrift:rl:"

// RedisLimiter shares counters between API nodes.
type RedisLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb redis.Cmdable, limit int, w time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: w}
}

func (l *RedisLimiter) Limit() int { return l.limit }

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := redisKeyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit: %w", err)
	}

	// a key without expiry is a fresh window, or one whose PEXPIRE was lost
	left := ttl.Val()
	if left < 0 {
		if err := l.rdb.PExpire(ctx, k, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("redis rate limit: %w", err)
		}
		left = l.window
	}
	return decide(l.limit, incr.Val(), left), nil
}
