package api

import (
	"errors"
	"net/http"

	"github.com/hailcast/hailcast-api/internal/domain"
	"github.com/hailcast/hailcast-api/internal/model"
	"github.com/hailcast/hailcast-api/internal/quota"
	"github.com/hailcast/hailcast-api/internal/service"
	"github.com/hailcast/hailcast-api/internal/service/auth"
	"github.com/hailcast/hailcast-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongCredentials):
		return http.StatusUnauthorized

	// Billing errors
	case errors.Is(err, store.ErrInsufficientFunds):
		return http.StatusPaymentRequired

	// Not found errors
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrTaskNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrUsernameExists):
		return http.StatusConflict

	// Quota errors
	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusTooManyRequests

	// Bad request errors
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrDowngradeNotAllowed),
		errors.Is(err, domain.ErrUnknownTier),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidDistrict),
		errors.Is(err, domain.ErrEmptyModelName),
		errors.Is(err, model.ErrModelNotRegistered),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Dispatch failures: the task is stored but not queued
	case errors.Is(err, service.ErrDispatchFailed):
		return http.StatusInternalServerError

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrWrongCredentials):
		return "Invalid credentials"

	// Billing errors
	case errors.Is(err, store.ErrInsufficientFunds):
		return "Insufficient funds"

	// Not found errors
	case errors.Is(err, store.ErrAccountNotFound):
		return "Account not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	// Conflict errors
	case errors.Is(err, store.ErrUsernameExists):
		return "Username already exists"

	// Quota errors
	case errors.Is(err, quota.ErrQuotaExceeded):
		var limitErr *quota.LimitError
		if errors.As(err, &limitErr) {
			return limitErr.Error()
		}
		return "Daily task quota exceeded"

	// Bad request errors
	case errors.Is(err, service.ErrInvalidAmount):
		return "Amount must be positive"

	case errors.Is(err, service.ErrDowngradeNotAllowed):
		return "Cannot downgrade to a lower tier while the current tier is active"

	case errors.Is(err, domain.ErrUnknownTier):
		return "Unknown tier"

	case errors.Is(err, domain.ErrInvalidDistrict):
		return "Invalid district"

	case errors.Is(err, domain.ErrEmptyModelName):
		return "Model name is required"

	case errors.Is(err, model.ErrModelNotRegistered):
		return "Unknown model"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	// Dispatch failures
	case errors.Is(err, service.ErrDispatchFailed):
		return "Task accepted but dispatch failed; check the task status"

	default:
		return "An unexpected error occurred"
	}
}

// RespondWithMappedError maps an internal error to a status code and a
// safe message, and writes the error response.
func RespondWithMappedError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
}
