package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hailcast/hailcast-api/internal/domain"
	"github.com/hailcast/hailcast-api/internal/platform/logger"
	"github.com/hailcast/hailcast-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface.
func NewPostgresTaskStore(db store.DBTX, log *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: log.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, account_id, model, city, district, hour, cost, status, result, trip_costs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.AccountID,
		task.Model,
		task.City,
		task.District,
		task.Hour,
		task.Cost,
		task.Status,
		task.Result,
		task.TripCosts,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: account %s not found", store.ErrInvalidEntity, task.AccountID)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("account_id", task.AccountID.String()),
		slog.String("model", task.Model),
		slog.Float64("cost", task.Cost))
	return nil
}

const taskColumns = `id, account_id, model, city, district, hour, cost, status, result, trip_costs, created_at, updated_at`

func scanTask(scanner interface{ Scan(dest ...any) error }) (*domain.Task, error) {
	var task domain.Task
	var status string
	var result, tripCosts sql.NullString

	err := scanner.Scan(
		&task.ID,
		&task.AccountID,
		&task.Model,
		&task.City,
		&task.District,
		&task.Hour,
		&task.Cost,
		&status,
		&result,
		&tripCosts,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	if result.Valid {
		task.Result = &result.String
	}
	if tripCosts.Valid {
		task.TripCosts = &tripCosts.String
	}

	return &task, nil
}

// GetForAccount implements store.TaskStore.GetForAccount
// The account scope is part of the query, so a task belonging to a
// different account is indistinguishable from a missing one.
func (s *PostgresTaskStore) GetForAccount(ctx context.Context, accountID, taskID uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND account_id = $2`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, taskID, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}
	return task, nil
}

// ListByAccount implements store.TaskStore.ListByAccount
func (s *PostgresTaskStore) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE account_id = $1 ORDER BY created_at DESC`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tasks, nil
}

// CountCreatedSince implements store.TaskStore.CountCreatedSince
func (s *PostgresTaskStore) CountCreatedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int, error) {
	query := `SELECT count(*) FROM tasks WHERE account_id = $1 AND created_at >= $2`

	var count int
	if err := s.db.QueryRowContext(ctx, query, accountID, since).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// UpdateStatus implements store.TaskStore.UpdateStatus
func (s *PostgresTaskStore) UpdateStatus(ctx context.Context, taskID uuid.UUID, status domain.TaskStatus) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `UPDATE tasks SET status = $2, updated_at = now() WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, taskID, status)
	if err != nil {
		log.Error("failed to update task status",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	log.Debug("task status updated",
		slog.String("task_id", taskID.String()),
		slog.String("status", string(status)))
	return nil
}

// Complete implements store.TaskStore.Complete
func (s *PostgresTaskStore) Complete(ctx context.Context, taskID uuid.UUID, result string, tripCosts *string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $2, result = $3, trip_costs = $4, updated_at = now()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, taskID, domain.TaskStatusCompleted, result, tripCosts)
	if err != nil {
		log.Error("failed to complete task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(res, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	log.Info("task completed", slog.String("task_id", taskID.String()))
	return nil
}
