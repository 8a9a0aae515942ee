package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailcast/hailcast-api/internal/domain"
	"github.com/hailcast/hailcast-api/internal/quota"
	"github.com/hailcast/hailcast-api/internal/store"
)

type dispatchFixture struct {
	accounts  *fakeAccountStore
	tasks     *fakeTaskStore
	publisher *fakePublisher
	svc       *DispatchServiceImpl
}

func newDispatchFixture(t *testing.T, now time.Time) *dispatchFixture {
	t.Helper()
	accounts := newFakeAccountStore()
	tasks := newFakeTaskStore()
	publisher := &fakePublisher{}
	svc := NewDispatchService(accounts, tasks, testPolicy(), publisher, fakeTxRunner{}, testLogger())
	svc.now = func() time.Time { return now }
	return &dispatchFixture{
		accounts:  accounts,
		tasks:     tasks,
		publisher: publisher,
		svc:       svc,
	}
}

func TestSubmitFree(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	t.Run("creates pending task for next hour", func(t *testing.T) {
		t.Parallel()
		f := newDispatchFixture(t, now)
		account := seedAccount(t, f.accounts, 0)

		task, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, false)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, task.Status)
		assert.Equal(t, 13, task.Hour)
		assert.Equal(t, 0.0, task.Cost)

		require.Len(t, f.publisher.published, 1)
		msg := f.publisher.published[0]
		assert.Equal(t, task.ID, msg.TaskID)
		assert.Equal(t, time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC), msg.TargetTime())
	})

	t.Run("date rolls over midnight", func(t *testing.T) {
		t.Parallel()
		f := newDispatchFixture(t, time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC))
		account := seedAccount(t, f.accounts, 0)

		task, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, false)
		require.NoError(t, err)
		assert.Equal(t, 0, task.Hour)

		require.Len(t, f.publisher.published, 1)
		assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), f.publisher.published[0].TargetTime())
	})

	t.Run("quota exceeded on base tier", func(t *testing.T) {
		t.Parallel()
		f := newDispatchFixture(t, now)
		account := seedAccount(t, f.accounts, 0)

		for i := 0; i < 10; i++ {
			_, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, false)
			require.NoError(t, err)
		}

		_, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, false)
		assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
	})

	t.Run("lapsed tier quota falls back to base", func(t *testing.T) {
		t.Parallel()
		f := newDispatchFixture(t, now)
		account := seedAccount(t, f.accounts, 0)

		expired := now.Add(-time.Hour)
		require.NoError(t, f.accounts.SetTier(context.Background(), account.ID, domain.Tier2, &expired))

		for i := 0; i < 10; i++ {
			_, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, false)
			require.NoError(t, err)
		}

		_, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, false)
		assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
	})

	t.Run("unknown account", func(t *testing.T) {
		t.Parallel()
		f := newDispatchFixture(t, now)

		_, err := f.svc.Submit(context.Background(), uuid.New(), "lstmv3", "moscow", 42, false)
		assert.ErrorIs(t, err, store.ErrAccountNotFound)
	})
}

func TestSubmitPaid(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	t.Run("records tier task cost without debiting", func(t *testing.T) {
		t.Parallel()
		f := newDispatchFixture(t, now)
		account := seedAccount(t, f.accounts, 100)

		active := now.Add(24 * time.Hour)
		require.NoError(t, f.accounts.SetTier(context.Background(), account.ID, domain.Tier2, &active))

		task, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, true)
		require.NoError(t, err)
		assert.Equal(t, 15.0, task.Cost)

		// Billing happens on completion, not submission.
		stored, err := f.accounts.GetByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, stored.Balance)
	})

	t.Run("base tier cost applies without subscription", func(t *testing.T) {
		t.Parallel()
		f := newDispatchFixture(t, now)
		account := seedAccount(t, f.accounts, 100)

		task, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, true)
		require.NoError(t, err)
		assert.Equal(t, 20.0, task.Cost)
	})

	t.Run("insufficient balance rejected before task creation", func(t *testing.T) {
		t.Parallel()
		f := newDispatchFixture(t, now)
		account := seedAccount(t, f.accounts, 5)

		_, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, true)
		assert.ErrorIs(t, err, store.ErrInsufficientFunds)
		assert.Empty(t, f.publisher.published)

		tasks, err := f.svc.List(context.Background(), account.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}

func TestSubmitPublishFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	f := newDispatchFixture(t, now)
	account := seedAccount(t, f.accounts, 0)
	f.publisher.failPublish = errors.New("broker unavailable")

	task, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDispatchFailed)
	require.NotNil(t, task)

	// The pending row survives the publish failure and stays retrievable.
	stored, err := f.svc.Get(context.Background(), account.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
}

func TestGetScopedToAccount(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	f := newDispatchFixture(t, now)
	owner := seedAccount(t, f.accounts, 0)

	task, err := f.svc.Submit(context.Background(), owner.ID, "lstmv3", "moscow", 42, false)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), uuid.New(), task.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	_, err = f.svc.Get(context.Background(), owner.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestListWithoutLimitReturnsAll(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC)
	f := newDispatchFixture(t, now)
	account := seedAccount(t, f.accounts, 0)

	for i := 0; i < 8; i++ {
		_, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, false)
		require.NoError(t, err)
	}

	tasks, err := f.svc.List(context.Background(), account.ID, 0)
	require.NoError(t, err)
	assert.Len(t, tasks, 8)
}

func TestListHonorsExplicitLimit(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC)
	f := newDispatchFixture(t, now)
	account := seedAccount(t, f.accounts, 0)

	for i := 0; i < 8; i++ {
		_, err := f.svc.Submit(context.Background(), account.ID, "lstmv3", "moscow", 42, false)
		require.NoError(t, err)
	}

	tasks, err := f.svc.List(context.Background(), account.ID, 3)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
}
