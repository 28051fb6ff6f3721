package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheKeyType is the leading segment of a cache key
type CacheKeyType string

const (
	// CacheKeyOverview is for computed dashboard overviews
	CacheKeyOverview CacheKeyType = "overview"
	// CacheKeyLedgerPage is for ledger query pages
	CacheKeyLedgerPage CacheKeyType = "ledger"
)

// CacheService stores JSON values in Redis under typed keys
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a cache service with a default TTL
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{redis: redis, ttl: ttl}
}

// GenerateCacheKey joins keyType and params with ':'
func GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	return strings.Join(append([]string{string(keyType)}, params...), ":")
}

// OverviewKey is overview:<user>:<variant>
func OverviewKey(user, variant string) string {
	return GenerateCacheKey(CacheKeyOverview, user, variant)
}

// LedgerPageKey is ledger:<user>:<query key>
func LedgerPageKey(user, queryKey string) string {
	return GenerateCacheKey(CacheKeyLedgerPage, user, queryKey)
}

// Set stores value with the default TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores value with a custom TTL
func (c *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.SetRaw(ctx, key, data, ttl)
}

// SetRaw stores already-encoded JSON
func (c *CacheService) SetRaw(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.redis.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Get decodes the cached value into dest. A miss is (false, nil).
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// Invalidate removes keys
func (c *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...)
}

// InvalidatePattern removes all keys matching pattern
func (c *CacheService) InvalidatePattern(ctx context.Context, pattern string) error {
	keys, err := c.redis.ScanKeys(ctx, pattern)
	if err != nil {
		return fmt.Errorf("failed to find keys matching pattern: %w", err)
	}
	return c.Invalidate(ctx, keys...)
}

// InvalidateOverview drops every cached overview of the user
func (c *CacheService) InvalidateOverview(ctx context.Context, user string) error {
	return c.InvalidatePattern(ctx, OverviewKey(user, "*"))
}

// InvalidateLedger drops every cached ledger page of the user
func (c *CacheService) InvalidateLedger(ctx context.Context, user string) error {
	return c.InvalidatePattern(ctx, LedgerPageKey(user, "*"))
}

// TTL returns the default TTL
func (c *CacheService) TTL() time.Duration {
	return c.ttl
}
