package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/portfolio-dashboard/internal/logging"
)

// ConcurrentCache is a read-through cache in front of a CacheService.
// Concurrent misses on one key share a single load. The CacheService may be
// nil, in which case only the sharing applies.
type ConcurrentCache struct {
	cache  *CacheService
	logger *logging.Logger

	hits   atomic.Int64
	misses atomic.Int64

	loads singleflight.Group
}

// CacheStats counts lookups
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// NewConcurrentCache creates a read-through cache
func NewConcurrentCache(cache *CacheService, logger *logging.Logger) *ConcurrentCache {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &ConcurrentCache{
		cache:  cache,
		logger: logger.WithField("component", "concurrent_cache"),
	}
}

// GetOrLoad decodes the value for key into dest, calling load on a miss and
// caching its result. Cache failures are logged and treated as misses. A
// panicking load fails every caller sharing it with an error.
func (c *ConcurrentCache) GetOrLoad(ctx context.Context, key string, dest interface{}, load func(context.Context) (interface{}, error)) error {
	if c.cache != nil {
		found, err := c.cache.Get(ctx, key, dest)
		if err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		} else if found {
			c.hits.Add(1)
			return nil
		}
	}

	ch := c.loads.DoChan(key, func() (interface{}, error) {
		return c.fill(ctx, key, load)
	})
	// counted once the call is registered so Stats reflects joined callers
	c.misses.Add(1)

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}

	if res.Err != nil {
		return res.Err
	}
	if err := json.Unmarshal(res.Val.([]byte), dest); err != nil {
		return fmt.Errorf("failed to decode loaded value: %w", err)
	}
	return nil
}

func (c *ConcurrentCache) fill(ctx context.Context, key string, load func(context.Context) (interface{}, error)) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithFields(map[string]interface{}{
				"key":   key,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("Cache load panicked")
			data, err = nil, fmt.Errorf("load %s panicked: %v", key, r)
		}
	}()

	value, err := load(ctx)
	if err != nil {
		return nil, err
	}
	data, err = json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode loaded value: %w", err)
	}
	if c.cache != nil {
		if err := c.cache.SetRaw(ctx, key, data, c.cache.TTL()); err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
		}
	}
	return data, nil
}

// Stats returns hit and miss counts
func (c *ConcurrentCache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Invalidate drops keys from the backing cache
func (c *ConcurrentCache) Invalidate(ctx context.Context, keys ...string) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Invalidate(ctx, keys...)
}

// InvalidateUser drops the user's cached overview and ledger pages
func (c *ConcurrentCache) InvalidateUser(ctx context.Context, user string) error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.InvalidateOverview(ctx, user); err != nil {
		return err
	}
	return c.cache.InvalidateLedger(ctx, user)
}
