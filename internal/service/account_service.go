package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hailcast/hailcast-api/internal/domain"
	"github.com/hailcast/hailcast-api/internal/service/auth"
	"github.com/hailcast/hailcast-api/internal/store"
)

// AccountService provides account registration, authentication, and lookup.
type AccountService interface {
	// Register creates a new account with the given credentials.
	// The new account starts on the base tier with a zero balance.
	Register(ctx context.Context, username, password string) (*domain.Account, error)

	// Authenticate verifies the credentials and returns the matching account.
	// Returns auth.ErrWrongCredentials when the username is unknown or the
	// password does not match, without distinguishing the two.
	Authenticate(ctx context.Context, username, password string) (*domain.Account, error)

	// GetAccount retrieves an account by its ID.
	GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
}

// AccountServiceImpl implements the AccountService interface.
type AccountServiceImpl struct {
	accounts store.AccountStore
	hasher   auth.PasswordHasher
	verifier auth.PasswordVerifier
	txRunner store.TxRunner
	logger   *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	accounts store.AccountStore,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	txRunner store.TxRunner,
	logger *slog.Logger,
) AccountService {
	return &AccountServiceImpl{
		accounts: accounts,
		hasher:   hasher,
		verifier: verifier,
		txRunner: txRunner,
		logger:   logger.With("component", "account_service"),
	}
}

// Register creates a new account with the specified username and password.
// Uses a transaction to ensure atomicity of the operation.
func (s *AccountServiceImpl) Register(ctx context.Context, username, password string) (*domain.Account, error) {
	account, err := domain.NewAccount(username, password)
	if err != nil {
		s.logger.Debug("rejected invalid registration",
			"error", err,
			"username", username)
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("failed to hash password",
			"error", err,
			"username", username)
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	account.HashedPassword = hashed
	account.Password = ""

	err = s.txRunner.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.accounts.WithTx(tx).Create(ctx, account)
	})
	if err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			s.logger.Debug("attempted to register existing username",
				"username", username)
		} else {
			s.logger.Error("failed to save account",
				"error", err,
				"username", username)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("account registered",
		"account_id", account.ID,
		"username", account.Username)

	return account, nil
}

// Authenticate verifies the username and password against the stored hash.
func (s *AccountServiceImpl) Authenticate(ctx context.Context, username, password string) (*domain.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			s.logger.Debug("login attempt for unknown username",
				"username", username)
			return nil, auth.ErrWrongCredentials
		}
		s.logger.Error("failed to retrieve account for login",
			"error", err,
			"username", username)
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	if err := s.verifier.Compare(account.HashedPassword, password); err != nil {
		s.logger.Debug("login attempt with wrong password",
			"account_id", account.ID)
		return nil, auth.ErrWrongCredentials
	}

	return account, nil
}

// GetAccount retrieves an account by its ID.
func (s *AccountServiceImpl) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, store.ErrAccountNotFound) {
			s.logger.Error("failed to retrieve account",
				"error", err,
				"account_id", accountID)
		}
		return nil, fmt.Errorf("failed to retrieve account: %w", err)
	}
	return account, nil
}
