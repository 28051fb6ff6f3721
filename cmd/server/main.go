// Package main provides the API server entry point for the portfolio dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/portfolio-dashboard/internal/api"
	"github.com/portfolio-dashboard/internal/config"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/ratelimit"
	"github.com/portfolio-dashboard/internal/service"
	"github.com/portfolio-dashboard/internal/storage"
)

// stores is the persistence wiring chosen by STORAGE_DRIVER
type stores struct {
	records *storage.RecordStore
	ledger  storage.Ledger
	cache   service.ViewCache
	limiter api.SharedLimiter
	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":   cfg.Logging.Level,
		"format":  cfg.Logging.Format,
		"storage": cfg.Storage.Driver,
	}).Info("Structured logging initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage")
	}
	defer st.Close()

	if cfg.Storage.SeedSampleData {
		seedUsers(ctx, cfg, st)
	}

	dashboardService := service.NewDashboardService(st.records, st.ledger, st.cache, logger)
	ledgerService := service.NewLedgerService(st.ledger, st.cache, logger)
	assistantService := service.NewAssistantService(st.records, service.NewCannedResponder(), logger)

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimitRPS:    cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:  cfg.RateLimit.Burst,
		Tokens:          cfg.Auth.Tokens,
		SharedLimiter:   st.limiter,
	}
	if len(serverConfig.Tokens) == 0 {
		logger.Warn("AUTH_TOKENS is empty; every /api request will be rejected")
	}

	server := api.NewServer(serverConfig, dashboardService, ledgerService, assistantService, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("Server stopped with error")
	}
	logger.Info("Server exited")
}

// openStores connects the configured backends and applies migrations
func openStores(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*stores, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage; data is lost on restart")
		kv := storage.NewMemoryKV()
		return &stores{
			records: storage.NewRecordStore(kv),
			ledger:  storage.NewKVLedger(kv),
		}, nil
	}

	st := &stores{}
	fail := func(err error) (*stores, error) {
		st.Close()
		return nil, err
	}

	logger.Info("Connecting to databases...")

	if err := storage.RunMigrations(storage.PostgresURL(&cfg.Database.Postgres), cfg.Storage.PostgresMigrationsPath); err != nil {
		return fail(fmt.Errorf("postgres migrations: %w", err))
	}
	postgres, err := storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
	if err != nil {
		return fail(fmt.Errorf("connect to postgres: %w", err))
	}
	st.closers = append(st.closers, postgres.Close)

	clickhouse, err := storage.NewClickHouseDB(ctx, &cfg.Database.ClickHouse)
	if err != nil {
		return fail(fmt.Errorf("connect to clickhouse: %w", err))
	}
	st.closers = append(st.closers, func() {
		if err := clickhouse.Close(); err != nil {
			logger.WithError(err).Warn("Error closing ClickHouse connection")
		}
	})
	if err := storage.RunClickHouseMigrations(ctx, clickhouse, cfg.Storage.ClickHouseMigrationsPath); err != nil {
		return fail(fmt.Errorf("clickhouse migrations: %w", err))
	}

	redis, err := storage.NewRedisCache(ctx, &cfg.Database.Redis)
	if err != nil {
		return fail(fmt.Errorf("connect to redis: %w", err))
	}
	st.closers = append(st.closers, func() {
		if err := redis.Close(); err != nil {
			logger.WithError(err).Warn("Error closing Redis connection")
		}
	})

	logger.Info("Database connections established")

	st.records = storage.NewRecordStore(storage.NewKVStore(postgres))
	st.ledger = storage.NewLedgerRepository(clickhouse)
	st.cache = storage.NewConcurrentCache(storage.NewCacheService(redis, cfg.Cache.TTL), logger)

	limiter, err := ratelimit.NewWindowLimiter(&ratelimit.WindowLimiterConfig{
		Redis:        redis.Client(),
		GlobalBudget: cfg.RateLimit.SharedGlobalBudget,
		UserBudget:   cfg.RateLimit.SharedUserBudget,
		WindowSize:   cfg.RateLimit.SharedWindow,
	})
	if err != nil {
		return fail(fmt.Errorf("shared rate limit: %w", err))
	}
	st.limiter = limiter
	return st, nil
}

// seedUsers gives every configured user the sample portfolio and ledger
// unless they already have data.
func seedUsers(ctx context.Context, cfg *config.Config, st *stores) {
	seen := make(map[string]bool)
	for _, user := range cfg.Auth.Tokens {
		if seen[user] {
			continue
		}
		seen[user] = true
		if _, err := service.SeedUser(ctx, st.records, st.ledger, user, time.Now()); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("user", user).Warn("Seeding sample data failed")
		}
	}
}
