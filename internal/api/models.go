package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hailcast/hailcast-api/internal/domain"
)

// Common request/response structures

// RegisterRequest defines the payload for the account registration endpoint.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the account login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// AccountID is the unique identifier of the authenticated account
	AccountID uuid.UUID `json:"account_id"`

	// Token is the JWT used for API authorization
	Token string `json:"token"`
}

// TopUpRequest defines the payload for the balance top-up endpoint.
type TopUpRequest struct {
	Amount float64 `json:"amount" validate:"required"`
}

// BalanceResponse reports the balance after a ledger operation.
type BalanceResponse struct {
	Balance float64 `json:"balance"`
}

// PurchaseRequest defines the payload for the tier purchase endpoint.
type PurchaseRequest struct {
	Tier string `json:"tier" validate:"required"`
}

// PurchaseResponse reports the subscription state after a purchase.
type PurchaseResponse struct {
	Tier          domain.Tier `json:"tier"`
	TierExpiresAt *time.Time  `json:"tier_expires_at,omitempty"`
	Balance       float64     `json:"balance"`
}

// ProfileResponse is the account overview returned by /api/profile.
type ProfileResponse struct {
	AccountID     uuid.UUID     `json:"account_id"`
	Username      string        `json:"username"`
	Tier          domain.Tier   `json:"tier"`
	TierExpiresAt *time.Time    `json:"tier_expires_at,omitempty"`
	Balance       float64       `json:"balance"`
	RecentTasks   []domain.Task `json:"recent_tasks"`
}

// TaskRequest defines the payload for the task submission endpoints.
type TaskRequest struct {
	Model    string `json:"model"`
	City     string `json:"city"     validate:"required"`
	District int    `json:"district" validate:"required,gt=0"`
}

// TaskListResponse wraps a page of tasks.
type TaskListResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

// HistoryResponse wraps a page of ledger entries.
type HistoryResponse struct {
	Entries []domain.LedgerEntry `json:"entries"`
}
