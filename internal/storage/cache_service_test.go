package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-dashboard/internal/ledger"
)

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "overview:alice:3", OverviewKey("alice", "3"))
	assert.Equal(t, "ledger:alice:abc", LedgerPageKey("alice", "abc"))
	assert.Equal(t, "ledger:alice:*", LedgerPageKey("alice", "*"))
}

func TestCacheService_SetGet(t *testing.T) {
	_, redisCache := newTestRedis(t)
	cache := NewCacheService(redisCache, time.Minute)
	ctx := testContext(t)

	page := ledger.Page{MatchCount: 3, PageCount: 1, PageNumber: 1, PageSize: 10}
	require.NoError(t, cache.Set(ctx, "ledger:alice:q", page))

	var got ledger.Page
	found, err := cache.Get(ctx, "ledger:alice:q", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, got.MatchCount)
}

func TestCacheService_Miss(t *testing.T) {
	_, redisCache := newTestRedis(t)
	cache := NewCacheService(redisCache, time.Minute)

	var got map[string]string
	found, err := cache.Get(testContext(t), "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheService_CorruptValue(t *testing.T) {
	mr, redisCache := newTestRedis(t)
	cache := NewCacheService(redisCache, time.Minute)
	require.NoError(t, mr.Set("overview:alice:3", "{not json"))

	var got map[string]string
	found, err := cache.Get(testContext(t), "overview:alice:3", &got)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestCacheService_TTL(t *testing.T) {
	mr, redisCache := newTestRedis(t)
	cache := NewCacheService(redisCache, 30*time.Second)
	ctx := testContext(t)

	require.NoError(t, cache.Set(ctx, "overview:alice:3", map[string]int{"a": 1}))
	assert.Equal(t, 30*time.Second, mr.TTL("overview:alice:3"))

	mr.FastForward(31 * time.Second)

	var got map[string]int
	found, err := cache.Get(ctx, "overview:alice:3", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheService_InvalidateLedger(t *testing.T) {
	mr, redisCache := newTestRedis(t)
	cache := NewCacheService(redisCache, time.Minute)
	ctx := testContext(t)

	for _, key := range []string{
		LedgerPageKey("alice", "q1"),
		LedgerPageKey("alice", "q2"),
		LedgerPageKey("alicia", "q1"),
		OverviewKey("alice", "3"),
	} {
		require.NoError(t, cache.Set(ctx, key, 1))
	}

	require.NoError(t, cache.InvalidateLedger(ctx, "alice"))

	assert.False(t, mr.Exists(LedgerPageKey("alice", "q1")))
	assert.False(t, mr.Exists(LedgerPageKey("alice", "q2")))
	assert.True(t, mr.Exists(LedgerPageKey("alicia", "q1")))
	assert.True(t, mr.Exists(OverviewKey("alice", "3")))

	require.NoError(t, cache.InvalidateOverview(ctx, "alice"))
	assert.False(t, mr.Exists(OverviewKey("alice", "3")))
}

func TestCacheService_InvalidateNothing(t *testing.T) {
	_, redisCache := newTestRedis(t)
	cache := NewCacheService(redisCache, time.Minute)

	assert.NoError(t, cache.Invalidate(testContext(t)))
	assert.NoError(t, cache.InvalidateLedger(testContext(t), "nobody"))
}
