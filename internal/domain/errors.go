// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyUsername is returned when an account is created without a username.
	ErrEmptyUsername = errors.New("username cannot be empty")

	// ErrPasswordTooShort is returned when a password is below the minimum length.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")

	// ErrPasswordTooLong is returned when a password exceeds bcrypt's practical limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters long")

	// ErrEmptyHashedPassword is returned when a stored account has no credential hash.
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")

	// ErrUnknownTier is returned when a tier name is not one of the known tiers
	// or is not purchasable.
	ErrUnknownTier = errors.New("unknown tier")

	// ErrInvalidDistrict is returned when a task targets a non-positive district ID.
	ErrInvalidDistrict = errors.New("district must be a positive ID")

	// ErrEmptyModelName is returned when a task is created without a model name.
	ErrEmptyModelName = errors.New("model name cannot be empty")

	// ErrNegativeCost is returned when a task is created with a negative cost.
	ErrNegativeCost = errors.New("task cost cannot be negative")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
