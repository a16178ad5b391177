package transferfee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how stale a cached schedule may get.
const DefaultCacheTTL = 5 * time.Minute

// RedisCache caches schedules from an upstream Source in Redis.
type RedisCache struct {
	client   *redis.Client
	upstream Source
	ttl      time.Duration
	logger   *log.Logger
}

// NewRedisCache wraps upstream with a Redis cache.
func NewRedisCache(client *redis.Client, upstream Source, ttl time.Duration, logger *log.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisCache{client: client, upstream: upstream, ttl: ttl, logger: logger}
}

func cacheKey(mint string) string {
	return fmt.Sprintf("transferfee:%s", mint)
}

// Schedule returns the cached schedule, falling back to upstream on a miss.
// Entries from an ExpiringSource expire with the schedule, such as at the
// end of an epoch. Redis failures degrade to upstream lookups.
func (c *RedisCache) Schedule(ctx context.Context, mint string) (Schedule, error) {
	key := cacheKey(mint)

	data, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var sched Schedule
		if err := json.Unmarshal([]byte(data), &sched); err == nil {
			return sched, nil
		}
		c.logger.Printf("discarding malformed cache entry %s", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Printf("redis get %s: %v", key, err)
	}

	sched, valid, err := c.fetch(ctx, mint)
	if err != nil {
		return Schedule{}, err
	}

	payload, err := json.Marshal(sched)
	if err != nil {
		return Schedule{}, fmt.Errorf("marshal schedule: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, effectiveTTL(c.ttl, valid)).Err(); err != nil {
		c.logger.Printf("redis set %s: %v", key, err)
	}
	return sched, nil
}

func (c *RedisCache) fetch(ctx context.Context, mint string) (Schedule, time.Duration, error) {
	if es, ok := c.upstream.(ExpiringSource); ok {
		return es.ScheduleWithExpiry(ctx, mint)
	}
	sched, err := c.upstream.Schedule(ctx, mint)
	return sched, 0, err
}

// effectiveTTL keeps an entry no longer than the schedule stays in effect.
func effectiveTTL(ttl, valid time.Duration) time.Duration {
	if valid > 0 {
		return min(ttl, valid)
	}
	return ttl
}
