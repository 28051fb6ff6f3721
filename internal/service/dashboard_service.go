// Package service composes storage with the dashboard engines: the portfolio
// overview, the ledger view and the assistant conversation.
package service

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/ledger"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/portfolio"
	"github.com/portfolio-dashboard/internal/sample"
	"github.com/portfolio-dashboard/internal/sparkline"
	"github.com/portfolio-dashboard/internal/storage"
)

// RecordStore persists the per-user portfolio and conversation documents
type RecordStore interface {
	Portfolio(ctx context.Context, user string) (*models.PortfolioData, error)
	SavePortfolio(ctx context.Context, user string, p *models.PortfolioData, now time.Time) error
	Messages(ctx context.Context, user string) ([]models.ConversationMessage, error)
	SaveMessages(ctx context.Context, user string, msgs []models.ConversationMessage) error
}

// ViewCache caches computed views per user
type ViewCache interface {
	GetOrLoad(ctx context.Context, key string, dest interface{}, load func(context.Context) (interface{}, error)) error
	InvalidateUser(ctx context.Context, user string) error
}

// RecentTransactions is the number of ledger rows shown on the overview
const RecentTransactions = 5

// TokenView is a holding with its plotted sparkline
type TokenView struct {
	models.Holding
	Points    sparkline.Points    `json:"points"`
	Path      string              `json:"path"`
	Direction sparkline.Direction `json:"direction"`
}

// Overview is everything the dashboard page renders
type Overview struct {
	portfolio.Result
	Tokens             []TokenView          `json:"tokenViews"`
	RecentTransactions []models.Transaction `json:"recentTransactions"`
	GeneratedAt        time.Time            `json:"generatedAt"`
}

// DashboardService serves the stored portfolio and the overview derived from it
type DashboardService struct {
	records RecordStore
	ledger  storage.Ledger
	cache   ViewCache
	logger  *logging.Logger
	now     func() time.Time
}

// NewDashboardService creates a dashboard service. cache may be nil.
func NewDashboardService(records RecordStore, ledgerStore storage.Ledger, cache ViewCache, logger *logging.Logger) *DashboardService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &DashboardService{
		records: records,
		ledger:  ledgerStore,
		cache:   cache,
		logger:  logger.WithField("component", "dashboard_service"),
		now:     time.Now,
	}
}

// Portfolio returns the stored portfolio, or an empty one if the user has none
func (s *DashboardService) Portfolio(ctx context.Context, user string) (*models.PortfolioData, error) {
	p, err := s.records.Portfolio(ctx, user)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load portfolio", err)
	}
	if p == nil {
		return sample.EmptyPortfolio(), nil
	}
	return p, nil
}

// SavePortfolio replaces the stored portfolio and drops cached views
func (s *DashboardService) SavePortfolio(ctx context.Context, user string, p *models.PortfolioData) error {
	if p == nil {
		return apperrors.NewInvalidParameterError("portfolio", "body is required")
	}
	if err := s.records.SavePortfolio(ctx, user, p, s.now()); err != nil {
		return apperrors.NewDatabaseError("save portfolio", err)
	}
	s.invalidate(ctx, user)
	s.logger.WithFields(map[string]interface{}{"user": user, "tokens": len(p.Tokens)}).Info("Portfolio saved")
	return nil
}

// Overview aggregates the stored portfolio. limit caps the gainer and loser
// lists; strict rejects holdings that break their invariants.
func (s *DashboardService) Overview(ctx context.Context, user string, limit int, strict bool) (*Overview, error) {
	if limit < 0 {
		return nil, apperrors.NewInvalidParameterError("limit", "must not be negative")
	}

	if s.cache == nil {
		return s.buildOverview(ctx, user, limit, strict)
	}

	variant := strconv.Itoa(limit)
	if strict {
		variant += "-strict"
	}
	var out Overview
	err := s.cache.GetOrLoad(ctx, storage.OverviewKey(user, variant), &out, func(ctx context.Context) (interface{}, error) {
		return s.buildOverview(ctx, user, limit, strict)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *DashboardService) buildOverview(ctx context.Context, user string, limit int, strict bool) (*Overview, error) {
	var (
		stored *models.PortfolioData
		txs    []models.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.Portfolio(gctx, user)
		stored = p
		return err
	})
	g.Go(func() error {
		list, err := s.ledger.Transactions(gctx, user)
		if err != nil {
			return apperrors.NewDatabaseError("load transactions", err)
		}
		txs = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts := []portfolio.Option{portfolio.WithLimit(limit)}
	if strict {
		opts = append(opts, portfolio.WithValidation())
	}
	result, err := portfolio.Aggregate(portfolio.InputFromPortfolio(stored), opts...)
	if err != nil {
		return nil, err
	}

	q := ledger.DefaultQuery()
	q.PageSize = RecentTransactions
	recent, err := ledger.Run(txs, q)
	if err != nil {
		return nil, err
	}

	tokens := make([]TokenView, 0, len(stored.Tokens))
	for _, h := range stored.Tokens {
		points := sparkline.NormalizeDefault(h.Sparkline)
		tokens = append(tokens, TokenView{
			Holding:   h.Clone(),
			Points:    points,
			Path:      points.SVG(),
			Direction: sparkline.Trend(h.Sparkline),
		})
	}

	return &Overview{
		Result:             *result,
		Tokens:             tokens,
		RecentTransactions: recent.Items,
		GeneratedAt:        s.now().UTC(),
	}, nil
}

func (s *DashboardService) invalidate(ctx context.Context, user string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, user); err != nil {
		s.logger.WithError(err).WithField("user", user).Warn("Cache invalidation failed")
	}
}
