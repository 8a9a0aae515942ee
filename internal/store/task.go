package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/hailcast/hailcast-api/internal/domain"
)

// TaskStore defines the interface for prediction task persistence.
// The dispatcher creates tasks; the worker that dequeued a task's
// queue message is the only writer of its later transitions.
type TaskStore interface {
	// Create saves a new pending task.
	// Returns ErrInvalidEntity if the referenced account does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetForAccount retrieves a task by ID, scoped to the owning account.
	// Returns ErrTaskNotFound if the task does not exist or belongs to a
	// different account.
	GetForAccount(ctx context.Context, accountID, taskID uuid.UUID) (*domain.Task, error)

	// ListByAccount returns the account's tasks, newest first, bounded by
	// limit. A limit of zero or less returns all tasks.
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Task, error)

	// CountCreatedSince returns how many tasks the account has created at
	// or after the given instant. Used for daily quota accounting.
	CountCreatedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int, error)

	// UpdateStatus transitions the task to the given status and bumps its
	// updated timestamp. Returns ErrTaskNotFound if the task does not exist.
	UpdateStatus(ctx context.Context, taskID uuid.UUID, status domain.TaskStatus) error

	// Complete writes the result payload (and optional derived trip
	// costs), sets the status to completed, and bumps the updated
	// timestamp. Returns ErrTaskNotFound if the task does not exist.
	Complete(ctx context.Context, taskID uuid.UUID, result string, tripCosts *string) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
