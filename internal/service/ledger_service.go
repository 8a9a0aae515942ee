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
	"github.com/hailcast/hailcast-api/internal/quota"
	"github.com/hailcast/hailcast-api/internal/store"
)

// DefaultHistoryLimit is the number of ledger entries returned when the
// caller does not specify a limit.
const DefaultHistoryLimit = 5

// LedgerService provides balance deposits, charges, tier purchases, and
// transaction history.
type LedgerService interface {
	// Deposit credits the account balance and records a ledger entry.
	// Returns the new balance. Amounts must be strictly positive.
	Deposit(ctx context.Context, accountID uuid.UUID, amount float64) (float64, error)

	// Debit charges the account balance and records a ledger entry.
	// Returns the new balance. Fails with store.ErrInsufficientFunds when
	// the balance would go negative.
	Debit(ctx context.Context, accountID uuid.UUID, amount float64, description string) (float64, error)

	// History returns the account's most recent ledger entries, newest
	// first. A non-positive limit falls back to DefaultHistoryLimit.
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error)

	// PurchaseTier charges the tier price and activates or extends the
	// subscription. Returns the updated account.
	PurchaseTier(ctx context.Context, accountID uuid.UUID, tier domain.Tier) (*domain.Account, error)

	// ReconcileExpired demotes all accounts whose paid tier has expired
	// back to the base tier. Returns the number of demoted accounts.
	ReconcileExpired(ctx context.Context) (int64, error)
}

// LedgerServiceImpl implements the LedgerService interface.
type LedgerServiceImpl struct {
	accounts store.AccountStore
	ledger   store.LedgerStore
	policy   *quota.Policy
	txRunner store.TxRunner
	logger   *slog.Logger
	now      func() time.Time // Injectable for testing
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	accounts store.AccountStore,
	ledger store.LedgerStore,
	policy *quota.Policy,
	txRunner store.TxRunner,
	logger *slog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accounts: accounts,
		ledger:   ledger,
		policy:   policy,
		txRunner: txRunner,
		logger:   logger.With("component", "ledger_service"),
		now:      time.Now,
	}
}

var _ LedgerService = (*LedgerServiceImpl)(nil)

// Deposit credits the account balance inside a single transaction.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, accountID uuid.UUID, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidAmount, amount)
	}

	var newBalance float64
	err := s.txRunner.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		accounts := s.accounts.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		balance, err := accounts.AdjustBalance(ctx, accountID, amount)
		if err != nil {
			return err
		}
		newBalance = balance

		entry, err := domain.NewLedgerEntry(accountID, amount, "deposit")
		if err != nil {
			return err
		}
		return ledger.Append(ctx, entry)
	})
	if err != nil {
		if !errors.Is(err, store.ErrAccountNotFound) {
			s.logger.Error("deposit failed",
				"error", err,
				"account_id", accountID,
				"amount", amount)
		}
		return 0, NewLedgerServiceError("deposit", "failed to credit balance", err)
	}

	s.logger.Info("balance credited",
		"account_id", accountID,
		"amount", amount,
		"balance", newBalance)

	return newBalance, nil
}

// Debit charges the account balance inside a single transaction. A
// zero charge succeeds without touching the balance or the ledger;
// entries record only actual movements.
func (s *LedgerServiceImpl) Debit(ctx context.Context, accountID uuid.UUID, amount float64, description string) (float64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidAmount, amount)
	}
	if amount == 0 {
		account, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			return 0, NewLedgerServiceError("debit", "failed to load account", err)
		}
		return account.Balance, nil
	}

	var newBalance float64
	err := s.txRunner.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		accounts := s.accounts.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		balance, err := accounts.AdjustBalance(ctx, accountID, -amount)
		if err != nil {
			return err
		}
		newBalance = balance

		entry, err := domain.NewLedgerEntry(accountID, -amount, description)
		if err != nil {
			return err
		}
		return ledger.Append(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			s.logger.Debug("debit rejected: insufficient funds",
				"account_id", accountID,
				"amount", amount)
		} else if !errors.Is(err, store.ErrAccountNotFound) {
			s.logger.Error("debit failed",
				"error", err,
				"account_id", accountID,
				"amount", amount)
		}
		return 0, NewLedgerServiceError("debit", "failed to charge balance", err)
	}

	s.logger.Info("balance charged",
		"account_id", accountID,
		"amount", amount,
		"balance", newBalance,
		"description", description)

	return newBalance, nil
}

// History returns the account's most recent ledger entries.
func (s *LedgerServiceImpl) History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	entries, err := s.ledger.History(ctx, accountID, limit)
	if err != nil {
		s.logger.Error("failed to retrieve ledger history",
			"error", err,
			"account_id", accountID)
		return nil, NewLedgerServiceError("history", "failed to retrieve ledger entries", err)
	}
	return entries, nil
}

// PurchaseTier charges the tier price and activates or extends the
// subscription inside a single transaction.
//
// Renewing the currently active tier extends the existing expiry; any
// other purchase starts a fresh period from now. Buying a lower-ranked
// tier while a higher one is active is rejected.
func (s *LedgerServiceImpl) PurchaseTier(ctx context.Context, accountID uuid.UUID, tier domain.Tier) (*domain.Account, error) {
	params, err := s.policy.PurchaseParams(tier)
	if err != nil {
		return nil, fmt.Errorf("failed to purchase tier: %w", err)
	}

	now := s.now().UTC()

	var updated *domain.Account
	err = s.txRunner.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		accounts := s.accounts.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		account, err := accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}

		if account.TierActive(now) && tier.Rank() < account.Tier.Rank() {
			return fmt.Errorf("%w: %s is below active tier %s", ErrDowngradeNotAllowed, tier, account.Tier)
		}

		expiresAt := now.Add(params.Duration)
		if account.Tier == tier && account.TierActive(now) {
			expiresAt = account.TierExpiresAt.Add(params.Duration)
		}

		balance, err := accounts.AdjustBalance(ctx, accountID, -params.Price)
		if err != nil {
			return err
		}

		if err := accounts.SetTier(ctx, accountID, tier, &expiresAt); err != nil {
			return err
		}

		entry, err := domain.NewLedgerEntry(accountID, -params.Price, fmt.Sprintf("purchase %s", tier))
		if err != nil {
			return err
		}
		if err := ledger.Append(ctx, entry); err != nil {
			return err
		}

		account.Tier = tier
		account.TierExpiresAt = &expiresAt
		account.Balance = balance
		updated = account
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDowngradeNotAllowed):
			s.logger.Debug("tier purchase rejected: downgrade",
				"account_id", accountID,
				"tier", tier)
		case errors.Is(err, store.ErrInsufficientFunds):
			s.logger.Debug("tier purchase rejected: insufficient funds",
				"account_id", accountID,
				"tier", tier)
		case !errors.Is(err, store.ErrAccountNotFound):
			s.logger.Error("tier purchase failed",
				"error", err,
				"account_id", accountID,
				"tier", tier)
		}
		return nil, NewLedgerServiceError("purchase_tier", "failed to purchase tier", err)
	}

	s.logger.Info("tier purchased",
		"account_id", accountID,
		"tier", tier,
		"expires_at", updated.TierExpiresAt,
		"balance", updated.Balance)

	return updated, nil
}

// ReconcileExpired demotes accounts whose paid tier expired before now.
// Safe to run repeatedly; already-demoted accounts are not matched again.
func (s *LedgerServiceImpl) ReconcileExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC()

	count, err := s.accounts.ResetExpiredTiers(ctx, now)
	if err != nil {
		s.logger.Error("failed to reconcile expired tiers", "error", err)
		return 0, NewLedgerServiceError("reconcile_expired", "failed to reset expired tiers", err)
	}

	if count > 0 {
		s.logger.Info("expired tiers reconciled", "count", count)
	}
	return count, nil
}
