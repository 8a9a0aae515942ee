package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hailcast/hailcast-api/internal/service"
	"github.com/hailcast/hailcast-api/internal/service/auth"
	"github.com/hailcast/hailcast-api/internal/store"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	accounts   service.AccountService
	jwtService auth.JWTService
	validator  *validator.Validate
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(accounts service.AccountService, jwtService auth.JWTService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		jwtService: jwtService,
		validator:  validator.New(),
		logger:     logger.With("component", "auth_handler"),
	}
}

// Register handles the /api/auth/register endpoint.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	account, err := h.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			RespondWithError(w, r, http.StatusConflict, "Username already exists")
			return
		}
		h.logger.Error("failed to register account", "error", err, "username", req.Username)
		RespondWithMappedError(w, r, err)
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), account.ID)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err, "account_id", account.ID)
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		AccountID: account.ID,
		Token:     token,
	})
}

// Login handles the /api/auth/login endpoint.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	account, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWrongCredentials) {
			RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("failed to authenticate account", "error", err, "username", req.Username)
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to authenticate")
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), account.ID)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err, "account_id", account.ID)
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to generate authentication token")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		AccountID: account.ID,
		Token:     token,
	})
}
