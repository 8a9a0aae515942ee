package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered user of the forecasting service.
// The balance and tier fields are mutated only through the ledger
// service; the credential hash is produced by the auth service.
type Account struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Password       string    `json:"-"` // Plaintext password, used temporarily during registration
	HashedPassword string    `json:"-"` // Never expose the credential hash in JSON
	Tier           Tier      `json:"tier"`
	Balance        float64   `json:"balance"`
	// TierExpiresAt is nil for the base tier. When the date passes, the
	// daily sweep reverts the account to base and clears it.
	TierExpiresAt *time.Time `json:"tier_expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewAccount creates a new Account with the given username and password.
// New accounts start on the base tier with a zero balance.
//
// NOTE: This function only sets up the account structure with the
// plaintext password. The caller is responsible for hashing the
// password before storing the account.
func NewAccount(username, password string) (*Account, error) {
	now := time.Now().UTC()
	account := &Account{
		ID:        uuid.New(),
		Username:  username,
		Password:  password,
		Tier:      TierBase,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	return account, nil
}

// Validate checks if the Account has valid data.
// Returns an error if any field fails validation.
func (a *Account) Validate() error {
	if a.ID == uuid.Nil {
		return ErrInvalidID
	}

	if a.Username == "" {
		return ErrEmptyUsername
	}

	if !a.Tier.Valid() {
		return ErrUnknownTier
	}

	if a.Password != "" {
		if len(a.Password) < 8 {
			return ErrPasswordTooShort
		}
		// bcrypt silently truncates beyond 72 bytes
		if len(a.Password) > 72 {
			return ErrPasswordTooLong
		}
	} else if a.HashedPassword == "" {
		return ErrEmptyHashedPassword
	}

	return nil
}

// TierActive reports whether the account currently holds a paid tier
// that has not yet expired. The base tier is never "active" in this
// sense: it has no expiry and nothing to protect from downgrades.
func (a *Account) TierActive(now time.Time) bool {
	if a.Tier == TierBase {
		return false
	}
	if a.TierExpiresAt == nil {
		return false
	}
	return now.Before(*a.TierExpiresAt)
}
