// Package main provides a CLI tool for running database migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/portfolio-dashboard/internal/config"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/storage"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down, version")
		dbType = flag.String("db", "postgres", "Database type: postgres, clickhouse, all")
		steps  = flag.Int("steps", 1, "Number of migrations to roll back with -action=down")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger().WithField("action", *action)
	ctx := logging.WithLogger(context.Background(), logger)

	var targets []string
	switch *dbType {
	case "postgres", "clickhouse":
		targets = []string{*dbType}
	case "all":
		targets = []string{"postgres", "clickhouse"}
	default:
		logger.Fatalf("Unknown database type: %s", *dbType)
	}

	for _, target := range targets {
		var err error
		switch target {
		case "postgres":
			err = runPostgresMigrations(ctx, cfg, *action, *steps)
		case "clickhouse":
			err = runClickHouseMigrations(ctx, cfg, *action)
		}
		if err != nil {
			logger.WithError(err).WithField("db", target).Fatal("Migration failed")
		}
	}
}

func runPostgresMigrations(ctx context.Context, cfg *config.Config, action string, steps int) error {
	logger := logging.FromContext(ctx).WithField("db", "postgres")
	databaseURL := storage.PostgresURL(&cfg.Database.Postgres)
	migrationsPath := cfg.Storage.PostgresMigrationsPath

	switch action {
	case "up":
		logger.Info("Running Postgres migrations...")
		if err := storage.RunMigrations(databaseURL, migrationsPath); err != nil {
			return err
		}
		logger.Info("Postgres migrations completed successfully")

	case "down":
		logger.WithField("steps", steps).Info("Rolling back Postgres migrations...")
		if err := storage.RollbackMigrations(databaseURL, migrationsPath, steps); err != nil {
			return err
		}
		logger.Info("Postgres migrations rolled back successfully")

	case "version":
		version, dirty, err := storage.MigrationVersion(databaseURL, migrationsPath)
		if err != nil {
			return err
		}
		logger.WithFields(map[string]interface{}{
			"version": version,
			"dirty":   dirty,
		}).Info("Current Postgres migration version")

	default:
		return fmt.Errorf("unknown action: %s", action)
	}

	return nil
}

func runClickHouseMigrations(ctx context.Context, cfg *config.Config, action string) error {
	if action != "up" {
		return fmt.Errorf("ClickHouse migrations only support 'up' action")
	}
	logger := logging.FromContext(ctx).WithField("db", "clickhouse")

	migrationsPath := cfg.Storage.ClickHouseMigrationsPath
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory not found: %s", migrationsPath)
	}

	logger.Info("Connecting to ClickHouse...")
	db, err := storage.NewClickHouseDB(ctx, &cfg.Database.ClickHouse)
	if err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Warn("Error closing ClickHouse connection")
		}
	}()

	logger.Info("Running ClickHouse migrations...")
	if err := storage.RunClickHouseMigrations(ctx, db, migrationsPath); err != nil {
		return err
	}

	logger.Info("ClickHouse migrations completed successfully")
	return nil
}
