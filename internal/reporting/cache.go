package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const dashboardCacheKey = "reporting:dashboard"

// ErrCacheMiss indicates no cached value for the key.
var ErrCacheMiss = errors.New("reporting: cache miss")

// Cache stores computed dashboard aggregates in Redis. A nil Cache (or a
// Cache without a client) is a no-op passthrough.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetDashboard loads cached stats, returning ErrCacheMiss when absent.
func (c *Cache) GetDashboard(ctx context.Context) (DashboardStats, error) {
	if c == nil || c.client == nil {
		return DashboardStats{}, ErrCacheMiss
	}
	payload, err := c.client.Get(ctx, dashboardCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return DashboardStats{}, ErrCacheMiss
		}
		return DashboardStats{}, err
	}
	var stats DashboardStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return DashboardStats{}, ErrCacheMiss
	}
	return stats, nil
}

// SetDashboard stores stats for the configured TTL.
func (c *Cache) SetDashboard(ctx context.Context, stats DashboardStats) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, dashboardCacheKey, payload, c.ttl).Err()
}

// Invalidate drops the cached stats. The ledger engine calls this after
// every committed mutation.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, dashboardCacheKey).Err()
}
