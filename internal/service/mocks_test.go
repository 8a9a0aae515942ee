package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hailcast/hailcast-api/internal/domain"
	"github.com/hailcast/hailcast-api/internal/queue"
	"github.com/hailcast/hailcast-api/internal/store"
)

// fakeTxRunner invokes the function directly with a nil transaction.
// Fake stores return themselves from WithTx, so the transactional code
// path is exercised without a database.
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

// fakeAccountStore is an in-memory store.AccountStore.
type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account

	failAdjustBalance error
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (s *fakeAccountStore) Create(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Username == account.Username {
			return store.ErrUsernameExists
		}
	}
	copied := *account
	s.accounts[account.ID] = &copied
	return nil
}

func (s *fakeAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *fakeAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.Username == username {
			copied := *account
			return &copied, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

func (s *fakeAccountStore) AdjustBalance(ctx context.Context, id uuid.UUID, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAdjustBalance != nil {
		return 0, s.failAdjustBalance
	}
	account, ok := s.accounts[id]
	if !ok {
		return 0, store.ErrAccountNotFound
	}
	if account.Balance+delta < 0 {
		return 0, fmt.Errorf("%w: balance %v delta %v", store.ErrInsufficientFunds, account.Balance, delta)
	}
	account.Balance += delta
	return account.Balance, nil
}

func (s *fakeAccountStore) SetTier(ctx context.Context, id uuid.UUID, tier domain.Tier, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return store.ErrAccountNotFound
	}
	account.Tier = tier
	account.TierExpiresAt = expiresAt
	return nil
}

func (s *fakeAccountStore) ResetExpiredTiers(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, account := range s.accounts {
		if account.Tier != domain.TierBase && account.TierExpiresAt != nil && account.TierExpiresAt.Before(now) {
			account.Tier = domain.TierBase
			account.TierExpiresAt = nil
			count++
		}
	}
	return count, nil
}

func (s *fakeAccountStore) WithTx(tx *sql.Tx) store.AccountStore { return s }

// fakeLedgerStore is an in-memory store.LedgerStore.
type fakeLedgerStore struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{}
}

func (s *fakeLedgerStore) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *fakeLedgerStore) History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []domain.LedgerEntry
	for _, entry := range s.entries {
		if entry.AccountID == accountID {
			matched = append(matched, entry)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *fakeLedgerStore) WithTx(tx *sql.Tx) store.LedgerStore { return s }

// fakeTaskStore is an in-memory store.TaskStore.
type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	failCreate error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (s *fakeTaskStore) Create(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *fakeTaskStore) GetForAccount(ctx context.Context, accountID, taskID uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok || task.AccountID != accountID {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *fakeTaskStore) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []domain.Task
	for _, task := range s.tasks {
		if task.AccountID == accountID {
			matched = append(matched, *task)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *fakeTaskStore) CountCreatedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, task := range s.tasks {
		if task.AccountID == accountID && !task.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *fakeTaskStore) UpdateStatus(ctx context.Context, taskID uuid.UUID, status domain.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.Status = status
	return nil
}

func (s *fakeTaskStore) Complete(ctx context.Context, taskID uuid.UUID, result string, tripCosts *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.Status = domain.TaskStatusCompleted
	task.Result = &result
	task.TripCosts = tripCosts
	return nil
}

func (s *fakeTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return s }

// fakePublisher records published task messages.
type fakePublisher struct {
	mu        sync.Mutex
	published []*queue.TaskMessage

	failPublish error
}

func (p *fakePublisher) PublishTask(ctx context.Context, msg *queue.TaskMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failPublish != nil {
		return p.failPublish
	}
	p.published = append(p.published, msg)
	return nil
}
