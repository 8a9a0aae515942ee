package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hailcast/hailcast-api/internal/domain"
	"github.com/hailcast/hailcast-api/internal/queue"
	"github.com/hailcast/hailcast-api/internal/quota"
	"github.com/hailcast/hailcast-api/internal/store"
)

// TaskPublisher publishes accepted tasks to the work queue.
type TaskPublisher interface {
	PublishTask(ctx context.Context, msg *queue.TaskMessage) error
}

// DispatchService accepts prediction requests, persists them as pending
// tasks, and hands them to the work queue.
type DispatchService interface {
	// Submit validates the request against the account's quota (and
	// balance, on the paid path), durably stores a pending task targeting
	// the next full hour, and publishes it to the queue. If publishing
	// fails the pending task is still returned alongside ErrDispatchFailed.
	Submit(ctx context.Context, accountID uuid.UUID, model, city string, district int, paid bool) (*domain.Task, error)

	// Get retrieves one of the account's tasks by ID.
	Get(ctx context.Context, accountID, taskID uuid.UUID) (*domain.Task, error)

	// List returns the account's tasks, newest first. A limit of zero or
	// less returns all of them.
	List(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Task, error)
}

// DispatchServiceImpl implements the DispatchService interface.
type DispatchServiceImpl struct {
	accounts  store.AccountStore
	tasks     store.TaskStore
	policy    *quota.Policy
	publisher TaskPublisher
	txRunner  store.TxRunner
	logger    *slog.Logger
	now       func() time.Time // Injectable for testing
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(
	accounts store.AccountStore,
	tasks store.TaskStore,
	policy *quota.Policy,
	publisher TaskPublisher,
	txRunner store.TxRunner,
	logger *slog.Logger,
) *DispatchServiceImpl {
	return &DispatchServiceImpl{
		accounts:  accounts,
		tasks:     tasks,
		policy:    policy,
		publisher: publisher,
		txRunner:  txRunner,
		logger:    logger.With("component", "dispatch_service"),
		now:       time.Now,
	}
}

var _ DispatchService = (*DispatchServiceImpl)(nil)

// Submit accepts one prediction request for the next full hour.
func (s *DispatchServiceImpl) Submit(ctx context.Context, accountID uuid.UUID, model, city string, district int, paid bool) (*domain.Task, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, NewDispatchServiceError("submit", "failed to load account", err)
	}

	now := s.now().UTC()

	// Accounts whose subscription lapsed are treated as base until the
	// reconcile sweep demotes them.
	tier := domain.TierBase
	if account.TierActive(now) {
		tier = account.Tier
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tasksToday, err := s.tasks.CountCreatedSince(ctx, accountID, midnight)
	if err != nil {
		return nil, NewDispatchServiceError("submit", "failed to count today's tasks", err)
	}

	if err := s.policy.Check(tier, tasksToday); err != nil {
		s.logger.Debug("submission rejected by quota",
			"account_id", accountID,
			"tier", tier,
			"tasks_today", tasksToday)
		return nil, err
	}

	var cost float64
	if paid {
		cost, err = s.policy.CostFor(tier)
		if err != nil {
			return nil, NewDispatchServiceError("submit", "failed to price task", err)
		}
		if account.Balance < cost {
			s.logger.Debug("submission rejected: insufficient funds",
				"account_id", accountID,
				"balance", account.Balance,
				"cost", cost)
			return nil, fmt.Errorf("%w: balance %v below task cost %v", store.ErrInsufficientFunds, account.Balance, cost)
		}
	}

	// Forecasts target the next full hour; the date rolls over midnight.
	target := now.Truncate(time.Hour).Add(time.Hour)

	task, err := domain.NewTask(accountID, model, city, district, target.Hour(), cost)
	if err != nil {
		return nil, fmt.Errorf("invalid task request: %w", err)
	}

	err = s.txRunner.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		s.logger.Error("failed to persist task",
			"error", err,
			"account_id", accountID)
		return nil, NewDispatchServiceError("submit", "failed to persist task", err)
	}

	// The task row is durable at this point. A publish failure leaves it
	// pending and retrievable; the caller is told dispatch did not happen.
	msg := queue.NewTaskMessage(task, target)
	if err := s.publisher.PublishTask(ctx, msg); err != nil {
		s.logger.Error("failed to publish task",
			"error", err,
			"task_id", task.ID,
			"account_id", accountID)
		return task, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	s.logger.Info("task dispatched",
		"task_id", task.ID,
		"account_id", accountID,
		"model", model,
		"district", district,
		"target", target,
		"cost", cost)

	return task, nil
}

// Get retrieves one of the account's tasks by ID.
func (s *DispatchServiceImpl) Get(ctx context.Context, accountID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetForAccount(ctx, accountID, taskID)
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			s.logger.Error("failed to retrieve task",
				"error", err,
				"task_id", taskID,
				"account_id", accountID)
		}
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}
	return task, nil
}

// List returns the account's tasks, newest first. A non-positive limit
// is passed through to the store, which returns the full history.
func (s *DispatchServiceImpl) List(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Task, error) {
	tasks, err := s.tasks.ListByAccount(ctx, accountID, limit)
	if err != nil {
		s.logger.Error("failed to list tasks",
			"error", err,
			"account_id", accountID)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}
