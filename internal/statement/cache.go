package statement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache fronts the builder with Redis. Concurrent requests for the same
// period collapse into one build via singleflight; reports that fail an
// identity check are never cached.
type Cache struct {
	builder *Builder
	client  *redis.Client
	ttl     time.Duration
	group   singleflight.Group
}

// NewCache builds a Cache. A nil client disables caching entirely.
func NewCache(builder *Builder, client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{builder: builder, client: client, ttl: ttl}
}

func cacheKey(period string) string {
	return "statement:" + period
}

// Report returns the period's statements, from cache when possible.
func (c *Cache) Report(ctx context.Context, period string, force bool) (Report, error) {
	if c.client == nil {
		return c.builder.Build(ctx, period)
	}
	if !force {
		raw, err := c.client.Get(ctx, cacheKey(period)).Bytes()
		if err == nil {
			var report Report
			if err := json.Unmarshal(raw, &report); err == nil {
				return report, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			// a cache outage degrades to a direct build
			return c.builder.Build(ctx, period)
		}
	}
	value, err, _ := c.group.Do(cacheKey(period), func() (any, error) {
		report, err := c.builder.Build(ctx, period)
		if err != nil {
			return report, err
		}
		if raw, err := json.Marshal(report); err == nil {
			c.client.Set(ctx, cacheKey(period), raw, c.ttl)
		}
		return report, nil
	})
	report, _ := value.(Report)
	return report, err
}

// Invalidate drops a period's cached report, called after postings land
// in the period.
func (c *Cache) Invalidate(ctx context.Context, period string) {
	if c.client == nil {
		return
	}
	c.client.Del(ctx, cacheKey(period))
}
