// Package main implements the forecast worker. It consumes prediction
// task messages from the durable queue, runs model inference over the
// feature store, persists results, and charges paid tasks on
// completion. A second subscription listens for control commands such
// as model reloads.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hailcast/hailcast-api/internal/config"
	"github.com/hailcast/hailcast-api/internal/featurestore"
	"github.com/hailcast/hailcast-api/internal/model"
	"github.com/hailcast/hailcast-api/internal/platform/logger"
	"github.com/hailcast/hailcast-api/internal/platform/postgres"
	"github.com/hailcast/hailcast-api/internal/queue"
	"github.com/hailcast/hailcast-api/internal/quota"
	"github.com/hailcast/hailcast-api/internal/service"
	"github.com/hailcast/hailcast-api/internal/store"
	"github.com/hailcast/hailcast-api/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker exited with error", "error", err)
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	nc, err := queue.Connect(cfg.Queue)
	if err != nil {
		return fmt.Errorf("failed to connect to queue: %w", err)
	}
	defer nc.Close()

	if err := queue.EnsureStream(ctx, nc, cfg.Queue); err != nil {
		return fmt.Errorf("failed to ensure stream: %w", err)
	}

	accountStore := postgres.NewPostgresAccountStore(db, log)
	ledgerStore := postgres.NewPostgresLedgerStore(db, log)
	taskStore := postgres.NewPostgresTaskStore(db, log)
	txRunner := store.NewSQLRunner(db)

	policy := quota.NewPolicy(cfg.Tiers)
	ledgerService := service.NewLedgerService(accountStore, ledgerStore, policy, txRunner, log)

	registry := model.NewRegistry(cfg.Models.Dir, cfg.Models.Names, log)
	registry.ReloadAll(ctx)

	featureStore := featurestore.NewPostgresFeatureStore(db, log)

	handler := worker.NewHandler(taskStore, ledgerService, registry, featureStore, cfg.Models, log)

	wmLogger := watermill.NewSlogLogger(log)

	// Task messages load-balance across workers; one in flight at a
	// time keeps redelivery windows small.
	taskSub, err := queue.NewSubscriber(cfg.Queue, cfg.Queue.DurableName, cfg.Queue.QueueGroup, 1, wmLogger)
	if err != nil {
		return fmt.Errorf("failed to create task subscriber: %w", err)
	}
	defer func() { _ = taskSub.Close() }()

	// Control commands fan out: every worker gets its own ephemeral
	// consumer so a reload reaches all of them.
	controlSub, err := queue.NewSubscriber(cfg.Queue, "", "", 64, wmLogger)
	if err != nil {
		return fmt.Errorf("failed to create control subscriber: %w", err)
	}
	defer func() { _ = controlSub.Close() }()

	errCh := make(chan error, 2)

	go func() {
		errCh <- taskSub.Run(ctx, cfg.Queue.TaskTopic, handler.HandleTask)
	}()
	go func() {
		errCh <- controlSub.Run(ctx, cfg.Queue.ControlTopic, handler.HandleControl(registry))
	}()

	log.Info("worker started",
		"task_topic", cfg.Queue.TaskTopic,
		"control_topic", cfg.Queue.ControlTopic,
		"models", cfg.Models.Names)

	err = <-errCh
	stop()

	// Drain the second loop before returning.
	<-errCh

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("worker failed: %w", err)
	}

	log.Info("worker stopped")
	return nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
