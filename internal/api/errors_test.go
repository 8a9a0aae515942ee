package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hailcast/hailcast-api/internal/domain"
	"github.com/hailcast/hailcast-api/internal/model"
	"github.com/hailcast/hailcast-api/internal/quota"
	"github.com/hailcast/hailcast-api/internal/service"
	"github.com/hailcast/hailcast-api/internal/service/auth"
	"github.com/hailcast/hailcast-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"wrong credentials", auth.ErrWrongCredentials, http.StatusUnauthorized},
		{"insufficient funds", store.ErrInsufficientFunds, http.StatusPaymentRequired},
		{"account not found", store.ErrAccountNotFound, http.StatusNotFound},
		{"task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"username exists", store.ErrUsernameExists, http.StatusConflict},
		{"quota exceeded", quota.ErrQuotaExceeded, http.StatusTooManyRequests},
		{"quota limit error", &quota.LimitError{Tier: domain.TierBase, Limit: 10}, http.StatusTooManyRequests},
		{"invalid amount", service.ErrInvalidAmount, http.StatusBadRequest},
		{"downgrade", service.ErrDowngradeNotAllowed, http.StatusBadRequest},
		{"unknown tier", domain.ErrUnknownTier, http.StatusBadRequest},
		{"model not registered", model.ErrModelNotRegistered, http.StatusBadRequest},
		{"dispatch failed", service.ErrDispatchFailed, http.StatusInternalServerError},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestMapErrorToStatusCodeWrapped(t *testing.T) {
	t.Parallel()

	// Mapped through service error wrappers and fmt wrapping alike.
	wrapped := service.NewLedgerServiceError("debit", "failed to charge balance",
		fmt.Errorf("adjust balance: %w", store.ErrInsufficientFunds))
	assert.Equal(t, http.StatusPaymentRequired, MapErrorToStatusCode(wrapped))

	dispatchErr := fmt.Errorf("%w: broker unavailable", service.ErrDispatchFailed)
	assert.Equal(t, http.StatusInternalServerError, MapErrorToStatusCode(dispatchErr))
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"wrong credentials", auth.ErrWrongCredentials, "Invalid credentials"},
		{"insufficient funds", store.ErrInsufficientFunds, "Insufficient funds"},
		{"task not found", store.ErrTaskNotFound, "Task not found"},
		{"username exists", store.ErrUsernameExists, "Username already exists"},
		{"downgrade", service.ErrDowngradeNotAllowed, "Cannot downgrade to a lower tier while the current tier is active"},
		{"internal detail hidden", errors.New("pq: connection refused host=10.0.0.5"), "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetSafeErrorMessage(tt.err))
		})
	}

	t.Run("quota message carries the limit", func(t *testing.T) {
		t.Parallel()
		err := &quota.LimitError{Tier: domain.TierBase, Limit: 10}
		assert.Contains(t, GetSafeErrorMessage(err), "10")
	})
}
