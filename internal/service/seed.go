package service

import (
	"context"
	"time"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/sample"
	"github.com/portfolio-dashboard/internal/storage"
)

// SeedResult reports what SeedUser wrote
type SeedResult struct {
	Portfolio    bool
	Transactions bool
}

// SeedUser stores the demo portfolio and ledger for user, skipping whichever
// the user already has.
func SeedUser(ctx context.Context, records RecordStore, ledgerStore storage.Ledger, user string, now time.Time) (SeedResult, error) {
	var res SeedResult
	logger := logging.FromContext(ctx).WithField("user", user)

	existing, err := records.Portfolio(ctx, user)
	if err != nil {
		return res, apperrors.NewDatabaseError("load portfolio", err)
	}
	if existing == nil {
		if err := records.SavePortfolio(ctx, user, sample.Portfolio(), now); err != nil {
			return res, apperrors.NewDatabaseError("seed portfolio", err)
		}
		res.Portfolio = true
	}

	txs, err := ledgerStore.Transactions(ctx, user)
	if err != nil {
		return res, apperrors.NewDatabaseError("load transactions", err)
	}
	if txs == nil {
		if err := ledgerStore.ReplaceTransactions(ctx, user, sample.Transactions()); err != nil {
			return res, apperrors.NewDatabaseError("seed transactions", err)
		}
		res.Transactions = true
	}

	if res.Portfolio || res.Transactions {
		logger.WithFields(map[string]interface{}{
			"portfolio":    res.Portfolio,
			"transactions": res.Transactions,
		}).Info("Seeded sample data")
	}
	return res, nil
}
