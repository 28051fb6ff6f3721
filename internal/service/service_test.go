package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/storage"
)

var fixedNow = time.Date(2025, 8, 21, 12, 0, 0, 0, time.UTC)

type fixture struct {
	records *storage.RecordStore
	ledger  *storage.KVLedger
	cache   *storage.ConcurrentCache
	mr      *miniredis.Miniredis
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	kv := storage.NewMemoryKV()
	f := &fixture{
		records: storage.NewRecordStore(kv),
		ledger:  storage.NewKVLedger(kv),
	}
	if withCache {
		f.mr = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: f.mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		cacheService := storage.NewCacheService(storage.NewRedisCacheFromClient(client), time.Minute)
		f.cache = storage.NewConcurrentCache(cacheService, logging.Discard())
	}
	return f
}

// viewCache avoids handing services a typed nil
func (f *fixture) viewCache() ViewCache {
	if f.cache == nil {
		return nil
	}
	return f.cache
}

func (f *fixture) seed(t *testing.T, user string) {
	t.Helper()
	_, err := SeedUser(context.Background(), f.records, f.ledger, user, fixedNow)
	require.NoError(t, err)
}

func (f *fixture) dashboard() *DashboardService {
	s := NewDashboardService(f.records, f.ledger, f.viewCache(), logging.Discard())
	s.now = func() time.Time { return fixedNow }
	return s
}

func symbols(hs []models.Holding) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Symbol
	}
	return out
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var ce *apperrors.CategorizedError
	require.True(t, errors.As(err, &ce), "expected CategorizedError, got %T", err)
	assert.Equal(t, code, ce.Code)
}

// failingStore fails every call
type failingStore struct{}

var errStore = errors.New("store down")

func (failingStore) Portfolio(context.Context, string) (*models.PortfolioData, error) {
	return nil, errStore
}

func (failingStore) SavePortfolio(context.Context, string, *models.PortfolioData, time.Time) error {
	return errStore
}

func (failingStore) Messages(context.Context, string) ([]models.ConversationMessage, error) {
	return nil, errStore
}

func (failingStore) SaveMessages(context.Context, string, []models.ConversationMessage) error {
	return errStore
}

func (failingStore) Transactions(context.Context, string) ([]models.Transaction, error) {
	return nil, errStore
}

func (failingStore) ReplaceTransactions(context.Context, string, []models.Transaction) error {
	return errStore
}
