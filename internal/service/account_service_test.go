package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailcast/hailcast-api/internal/domain"
	"github.com/hailcast/hailcast-api/internal/service/auth"
	"github.com/hailcast/hailcast-api/internal/store"
)

func newTestAccountService(accounts *fakeAccountStore) AccountService {
	verifier := auth.NewBcryptVerifier()
	return NewAccountService(accounts, verifier, verifier, fakeTxRunner{}, testLogger())
}

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("creates base tier account with hashed password", func(t *testing.T) {
		t.Parallel()
		accounts := newFakeAccountStore()
		svc := newTestAccountService(accounts)

		account, err := svc.Register(context.Background(), "rider", "password123")
		require.NoError(t, err)
		assert.Equal(t, domain.TierBase, account.Tier)
		assert.Equal(t, 0.0, account.Balance)
		assert.Empty(t, account.Password)
		assert.NotEmpty(t, account.HashedPassword)
		assert.NotEqual(t, "password123", account.HashedPassword)
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		t.Parallel()
		accounts := newFakeAccountStore()
		svc := newTestAccountService(accounts)

		_, err := svc.Register(context.Background(), "rider", "password123")
		require.NoError(t, err)

		_, err = svc.Register(context.Background(), "rider", "otherpassword")
		assert.ErrorIs(t, err, store.ErrUsernameExists)
	})

	t.Run("short password rejected", func(t *testing.T) {
		t.Parallel()
		svc := newTestAccountService(newFakeAccountStore())

		_, err := svc.Register(context.Background(), "rider", "short")
		assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	accounts := newFakeAccountStore()
	svc := newTestAccountService(accounts)

	registered, err := svc.Register(context.Background(), "rider", "password123")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()
		account, err := svc.Authenticate(context.Background(), "rider", "password123")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, account.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Authenticate(context.Background(), "rider", "wrongpassword")
		assert.ErrorIs(t, err, auth.ErrWrongCredentials)
	})

	t.Run("unknown username", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Authenticate(context.Background(), "ghost", "password123")
		assert.ErrorIs(t, err, auth.ErrWrongCredentials)
	})
}

func TestGetAccount(t *testing.T) {
	t.Parallel()

	accounts := newFakeAccountStore()
	svc := newTestAccountService(accounts)

	registered, err := svc.Register(context.Background(), "rider", "password123")
	require.NoError(t, err)

	account, err := svc.GetAccount(context.Background(), registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "rider", account.Username)

	_, err = svc.GetAccount(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}
