// Package main implements the entry point for the hailcast API server,
// which manages accounts, balances, subscription tiers, and the
// submission of taxi demand forecast tasks.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/hailcast/hailcast-api/internal/api"
	"github.com/hailcast/hailcast-api/internal/config"
	"github.com/hailcast/hailcast-api/internal/platform/logger"
	"github.com/hailcast/hailcast-api/internal/platform/postgres"
	"github.com/hailcast/hailcast-api/internal/queue"
	"github.com/hailcast/hailcast-api/internal/quota"
	"github.com/hailcast/hailcast-api/internal/service"
	"github.com/hailcast/hailcast-api/internal/service/auth"
	"github.com/hailcast/hailcast-api/internal/store"
	"github.com/hailcast/hailcast-api/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
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

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	nc, err := queue.Connect(cfg.Queue)
	if err != nil {
		return fmt.Errorf("failed to connect to queue: %w", err)
	}
	defer nc.Close()

	if err := queue.EnsureStream(ctx, nc, cfg.Queue); err != nil {
		return fmt.Errorf("failed to ensure stream: %w", err)
	}

	publisher, err := queue.NewPublisher(cfg.Queue, watermill.NewSlogLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer func() { _ = publisher.Close() }()

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create JWT service: %w", err)
	}

	policy := quota.NewPolicy(cfg.Tiers)

	accountStore := postgres.NewPostgresAccountStore(db, log)
	ledgerStore := postgres.NewPostgresLedgerStore(db, log)
	taskStore := postgres.NewPostgresTaskStore(db, log)
	txRunner := store.NewSQLRunner(db)

	bcryptVerifier := auth.NewBcryptVerifier()

	accountService := service.NewAccountService(accountStore, bcryptVerifier, bcryptVerifier, txRunner, log)
	ledgerService := service.NewLedgerService(accountStore, ledgerStore, policy, txRunner, log)
	dispatchService := service.NewDispatchService(accountStore, taskStore, policy, publisher, txRunner, log)

	router := api.NewRouter(api.RouterDeps{
		Accounts:     accountService,
		Ledger:       ledgerService,
		Dispatch:     dispatchService,
		JWTService:   jwtService,
		DefaultModel: cfg.Models.Default,
		Logger:       log,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	log.Info("server stopped")
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

func runMigrations(db *sql.DB) error {
	goose.SetLogger(&slogGooseLogger{})
	goose.SetBaseFS(migrations.Files)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	return goose.Up(db, ".")
}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...))
}

// Fatalf logs but does not exit; the error is returned to run which
// handles application exit consistently.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...))
}
