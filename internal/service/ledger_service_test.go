package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/ledger"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/sample"
	"github.com/portfolio-dashboard/internal/storage"
	"github.com/portfolio-dashboard/internal/types"
)

func (f *fixture) ledgerService() *LedgerService {
	return NewLedgerService(f.ledger, f.viewCache(), logging.Discard())
}

func ids(txs []models.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func TestLedgerService_TransactionsDefaultEmpty(t *testing.T) {
	f := newFixture(t, false)

	txs, err := f.ledgerService().Transactions(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestLedgerService_Query(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t, "alice")
	svc := f.ledgerService()
	ctx := context.Background()

	page, err := svc.Query(ctx, "alice", ledger.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(page.Items))
	assert.Equal(t, 5, page.MatchCount)
	assert.Equal(t, 1, page.PageCount)

	page, err = svc.Query(ctx, "alice", ledger.Query{
		SearchText:    "  eth ",
		TypeFilter:    string(types.TypeSwap),
		SortKey:       types.SortByValue,
		SortDirection: types.SortAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "5"}, ids(page.Items))

	page, err = svc.Query(ctx, "alice", ledger.Query{PageSize: 2, PageNumber: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, ids(page.Items))
	assert.Equal(t, 3, page.PageCount)

	_, err = svc.Query(ctx, "alice", ledger.Query{StatusFilter: "Lost"})
	requireCode(t, err, apperrors.CodeInvalidParameter)
}

func TestLedgerService_ReplaceTransactions(t *testing.T) {
	f := newFixture(t, false)
	svc := f.ledgerService()
	ctx := context.Background()

	require.NoError(t, svc.ReplaceTransactions(ctx, "alice", sample.Transactions()[:2]))
	txs, err := svc.Transactions(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(txs))

	bad := sample.Transactions()
	bad[3].Status = "Lost"
	err = svc.ReplaceTransactions(ctx, "alice", bad)
	requireCode(t, err, apperrors.CodeInvalidParameter)

	var ce *apperrors.CategorizedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "transactions[3]", ce.Details["parameter"])

	txs, err = svc.Transactions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, txs, 2, "rejected batch leaves the ledger untouched")
}

func TestLedgerService_RejectsDuplicateIDs(t *testing.T) {
	svc := newFixture(t, false).ledgerService()
	ctx := context.Background()

	txs := sample.Transactions()
	txs[4].ID = txs[1].ID
	err := svc.ReplaceTransactions(ctx, "alice", txs)
	requireCode(t, err, apperrors.CodeInvalidParameter)

	var ce *apperrors.CategorizedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "transactions[4]", ce.Details["parameter"])
	assert.Contains(t, ce.Message, "transactions[4]")

	stored, err := svc.Transactions(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLedgerService_RejectsIncompleteTransactions(t *testing.T) {
	svc := newFixture(t, false).ledgerService()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(tx *models.Transaction)
	}{
		{"missing id", func(tx *models.Transaction) { tx.ID = "" }},
		{"missing date", func(tx *models.Transaction) { tx.Date = models.Date{} }},
		{"unknown type", func(tx *models.Transaction) { tx.Type = "Stake" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := sample.Transactions()[0]
			tt.mutate(&tx)
			err := svc.ReplaceTransactions(ctx, "alice", []models.Transaction{tx})
			requireCode(t, err, apperrors.CodeInvalidParameter)
		})
	}
}

func TestLedgerService_PagesCachedAndInvalidated(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t, "alice")
	svc := f.ledgerService()
	ctx := context.Background()

	q := ledger.DefaultQuery()
	_, err := svc.Query(ctx, "alice", q)
	require.NoError(t, err)
	assert.True(t, f.mr.Exists(storage.LedgerPageKey("alice", q.CacheKey())))

	page, err := svc.Query(ctx, "alice", q)
	require.NoError(t, err)
	assert.Equal(t, 5, page.MatchCount)
	assert.Equal(t, int64(1), f.cache.Stats().Hits)

	require.NoError(t, svc.ReplaceTransactions(ctx, "alice", sample.Transactions()[:1]))
	assert.False(t, f.mr.Exists(storage.LedgerPageKey("alice", q.CacheKey())))

	page, err = svc.Query(ctx, "alice", q)
	require.NoError(t, err)
	assert.Equal(t, 1, page.MatchCount)
}

func TestLedgerService_StoreFailure(t *testing.T) {
	svc := NewLedgerService(failingStore{}, nil, logging.Discard())

	_, err := svc.Query(context.Background(), "alice", ledger.Query{})
	requireCode(t, err, apperrors.CodeDatabaseError)

	err = svc.ReplaceTransactions(context.Background(), "alice", nil)
	requireCode(t, err, apperrors.CodeDatabaseError)
}
