package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/hailcast/hailcast-api/internal/domain"
)

// LedgerStore defines the interface for the append-only balance
// transaction log. Entries are never updated or deleted.
type LedgerStore interface {
	// Append writes a ledger entry.
	// Returns ErrInvalidEntity if the referenced account does not exist.
	Append(ctx context.Context, entry *domain.LedgerEntry) error

	// History returns the account's most recent entries, newest first,
	// bounded by limit.
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error)

	// WithTx returns a new LedgerStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) LedgerStore
}
