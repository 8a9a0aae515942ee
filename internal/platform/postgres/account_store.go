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

// PostgresAccountStore implements the store.AccountStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAccountStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAccountStore creates a new PostgreSQL implementation of the
// AccountStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresAccountStore(db store.DBTX, log *slog.Logger) *PostgresAccountStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresAccountStore{
		db:     db,
		logger: log.With(slog.String("component", "account_store")),
	}
}

// Ensure PostgresAccountStore implements store.AccountStore interface
var _ store.AccountStore = (*PostgresAccountStore)(nil)

// WithTx implements store.AccountStore.WithTx
func (s *PostgresAccountStore) WithTx(tx *sql.Tx) store.AccountStore {
	return &PostgresAccountStore{db: tx, logger: s.logger}
}

// Create implements store.AccountStore.Create
// Returns store.ErrUsernameExists if the username is already taken.
func (s *PostgresAccountStore) Create(ctx context.Context, account *domain.Account) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := account.Validate(); err != nil {
		log.Warn("account validation failed during create",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return err
	}

	query := `
		INSERT INTO accounts (id, username, hashed_password, tier, balance, tier_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Username,
		account.HashedPassword,
		account.Tier,
		account.Balance,
		account.TierExpiresAt,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate username during account creation",
				slog.String("username", account.Username))
			return fmt.Errorf("%w: %v", store.ErrUsernameExists, err)
		}

		log.Error("failed to create account",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return MapError(err)
	}

	log.Info("account created",
		slog.String("account_id", account.ID.String()),
		slog.String("username", account.Username))
	return nil
}

const accountColumns = `id, username, hashed_password, tier, balance, tier_expires_at, created_at, updated_at`

func (s *PostgresAccountStore) scanAccount(row *sql.Row) (*domain.Account, error) {
	var account domain.Account
	var tier string
	var expiresAt sql.NullTime

	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.HashedPassword,
		&tier,
		&account.Balance,
		&expiresAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, MapError(err)
	}

	account.Tier = domain.Tier(tier)
	if expiresAt.Valid {
		t := expiresAt.Time
		account.TierExpiresAt = &t
	}

	return &account, nil
}

// GetByID implements store.AccountStore.GetByID
func (s *PostgresAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, id))
}

// GetByUsername implements store.AccountStore.GetByUsername
func (s *PostgresAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, username))
}

// AdjustBalance implements store.AccountStore.AdjustBalance
// The guard lives in the statement itself: a debit only matches when the
// resulting balance stays non-negative, so concurrent debits cannot
// overdraw the account.
func (s *PostgresAccountStore) AdjustBalance(ctx context.Context, id uuid.UUID, delta float64) (float64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE accounts
		SET balance = balance + $2, updated_at = now()
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance
	`

	var newBalance float64
	err := s.db.QueryRowContext(ctx, query, id, delta).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the account is missing or the debit would overdraw.
			var exists bool
			checkErr := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
			if checkErr != nil {
				return 0, MapError(checkErr)
			}
			if !exists {
				return 0, store.ErrAccountNotFound
			}
			log.Warn("balance adjustment rejected",
				slog.String("account_id", id.String()),
				slog.Float64("delta", delta))
			return 0, store.ErrInsufficientFunds
		}
		return 0, MapError(err)
	}

	return newBalance, nil
}

// SetTier implements store.AccountStore.SetTier
func (s *PostgresAccountStore) SetTier(ctx context.Context, id uuid.UUID, tier domain.Tier, expiresAt *time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE accounts
		SET tier = $2, tier_expires_at = $3, updated_at = now()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, tier, expiresAt)
	if err != nil {
		log.Error("failed to set tier",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "account"); err != nil {
		return store.ErrAccountNotFound
	}

	log.Info("tier updated",
		slog.String("account_id", id.String()),
		slog.String("tier", string(tier)))
	return nil
}

// ResetExpiredTiers implements store.AccountStore.ResetExpiredTiers
func (s *PostgresAccountStore) ResetExpiredTiers(ctx context.Context, now time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE accounts
		SET tier = $1, tier_expires_at = NULL, updated_at = now()
		WHERE tier <> $1 AND tier_expires_at IS NOT NULL AND tier_expires_at < $2
	`
	result, err := s.db.ExecContext(ctx, query, domain.TierBase, now)
	if err != nil {
		log.Error("failed to reset expired tiers", slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected > 0 {
		log.Info("expired tiers reset", slog.Int64("count", affected))
	}
	return affected, nil
}
