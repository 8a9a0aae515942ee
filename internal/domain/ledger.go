package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrZeroAmount is returned when a ledger entry is created with a zero amount.
var ErrZeroAmount = errors.New("ledger entry amount cannot be zero")

// LedgerEntry is one immutable record in an account's balance history.
// Deposits carry a positive amount, debits a negative one. Entries are
// never updated or deleted once written.
type LedgerEntry struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewLedgerEntry creates a ledger entry for the given account.
// The sign of amount is the caller's responsibility: the ledger
// service passes positive amounts for deposits and negative for debits.
func NewLedgerEntry(accountID uuid.UUID, amount float64, description string) (*LedgerEntry, error) {
	if accountID == uuid.Nil {
		return nil, ErrInvalidID
	}
	if amount == 0 {
		return nil, ErrZeroAmount
	}

	return &LedgerEntry{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
