// Package main implements the maintenance sweep, run on a schedule
// (typically cron). It demotes accounts whose paid tier has expired
// and tells running workers to reload their model artifacts.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hailcast/hailcast-api/internal/config"
	"github.com/hailcast/hailcast-api/internal/platform/logger"
	"github.com/hailcast/hailcast-api/internal/platform/postgres"
	"github.com/hailcast/hailcast-api/internal/queue"
	"github.com/hailcast/hailcast-api/internal/quota"
	"github.com/hailcast/hailcast-api/internal/service"
	"github.com/hailcast/hailcast-api/internal/store"
)

const sweepTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("sweep failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	accountStore := postgres.NewPostgresAccountStore(db, log)
	ledgerStore := postgres.NewPostgresLedgerStore(db, log)
	txRunner := store.NewSQLRunner(db)
	policy := quota.NewPolicy(cfg.Tiers)

	ledgerService := service.NewLedgerService(accountStore, ledgerStore, policy, txRunner, log)

	demoted, err := ledgerService.ReconcileExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to reconcile expired tiers: %w", err)
	}
	log.Info("expired tiers reconciled", "demoted", demoted)

	publisher, err := queue.NewPublisher(cfg.Queue, watermill.NewSlogLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer func() { _ = publisher.Close() }()

	ctrl := &queue.ControlMessage{
		Command:  queue.CommandReloadModels,
		IssuedAt: time.Now().UTC(),
	}
	if err := publisher.PublishControl(ctx, ctrl); err != nil {
		return fmt.Errorf("failed to publish reload command: %w", err)
	}
	log.Info("model reload requested")

	return nil
}
