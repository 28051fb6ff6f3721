package service

import (
	"context"
	"fmt"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/ledger"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/storage"
	"github.com/portfolio-dashboard/internal/types"
)

// LedgerService serves the user's transaction ledger
type LedgerService struct {
	ledger storage.Ledger
	cache  ViewCache
	logger *logging.Logger
}

// NewLedgerService creates a ledger service. cache may be nil.
func NewLedgerService(ledgerStore storage.Ledger, cache ViewCache, logger *logging.Logger) *LedgerService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &LedgerService{
		ledger: ledgerStore,
		cache:  cache,
		logger: logger.WithField("component", "ledger_service"),
	}
}

// Transactions returns the full stored ledger, empty if the user has none
func (s *LedgerService) Transactions(ctx context.Context, user string) ([]models.Transaction, error) {
	txs, err := s.ledger.Transactions(ctx, user)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load transactions", err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

// ReplaceTransactions validates and stores txs as the user's ledger.
// Transaction IDs must be unique within the batch.
func (s *LedgerService) ReplaceTransactions(ctx context.Context, user string, txs []models.Transaction) error {
	seen := make(map[string]int, len(txs))
	for i, tx := range txs {
		if err := validateTransaction(tx); err != nil {
			return apperrors.NewInvalidParameterError(fmt.Sprintf("transactions[%d]", i), err.Error())
		}
		if first, dup := seen[tx.ID]; dup {
			return apperrors.NewInvalidParameterError(fmt.Sprintf("transactions[%d]", i),
				fmt.Sprintf("duplicate id %q (also transactions[%d])", tx.ID, first))
		}
		seen[tx.ID] = i
	}

	if err := s.ledger.ReplaceTransactions(ctx, user, txs); err != nil {
		return apperrors.NewDatabaseError("save transactions", err)
	}
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, user); err != nil {
			s.logger.WithError(err).WithField("user", user).Warn("Cache invalidation failed")
		}
	}

	s.logger.WithFields(map[string]interface{}{"user": user, "count": len(txs)}).Info("Ledger replaced")
	return nil
}

// Query normalizes q and returns the requested page of the user's ledger
func (s *LedgerService) Query(ctx context.Context, user string, q ledger.Query) (*ledger.Page, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if s.cache == nil {
		return s.runQuery(ctx, user, q)
	}

	var page ledger.Page
	err := s.cache.GetOrLoad(ctx, storage.LedgerPageKey(user, q.CacheKey()), &page, func(ctx context.Context) (interface{}, error) {
		return s.runQuery(ctx, user, q)
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *LedgerService) runQuery(ctx context.Context, user string, q ledger.Query) (*ledger.Page, error) {
	txs, err := s.Transactions(ctx, user)
	if err != nil {
		return nil, err
	}
	return ledger.Run(txs, q)
}

func validateTransaction(tx models.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("id is required")
	}
	if tx.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if _, err := types.ParseTransactionType(string(tx.Type)); err != nil {
		return err
	}
	if _, err := types.ParseTransactionStatus(string(tx.Status)); err != nil {
		return err
	}
	return nil
}
