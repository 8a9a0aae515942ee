package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/hailcast/hailcast-api/internal/domain"
)

// AccountStore defines the interface for account data persistence.
type AccountStore interface {
	// Create saves a new account to the store.
	// Returns ErrUsernameExists if the username is already taken.
	// Returns validation errors from the domain Account if data is invalid.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account by its unique ID.
	// Returns ErrAccountNotFound if the account does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// GetByUsername retrieves an account by username.
	// Returns ErrAccountNotFound if the account does not exist.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)

	// AdjustBalance applies a signed delta to the account's balance and
	// returns the new balance. A negative delta that would take the
	// balance below zero fails with ErrInsufficientFunds and leaves the
	// balance untouched. Returns ErrAccountNotFound if the account does
	// not exist.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta float64) (float64, error)

	// SetTier updates the account's tier and expiry date. A nil expiresAt
	// clears the expiry (used when reverting to the base tier).
	// Returns ErrAccountNotFound if the account does not exist.
	SetTier(ctx context.Context, id uuid.UUID, tier domain.Tier, expiresAt *time.Time) error

	// ResetExpiredTiers reverts every account whose tier expiry is before
	// now and whose tier is not base back to the base tier with no
	// expiry. Returns the number of accounts reset. Idempotent.
	ResetExpiredTiers(ctx context.Context, now time.Time) (int64, error)

	// WithTx returns a new AccountStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) AccountStore
}
