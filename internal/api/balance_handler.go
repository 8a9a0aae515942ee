package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hailcast/hailcast-api/internal/domain"
	"github.com/hailcast/hailcast-api/internal/service"
)

// profileRecentTasks is how many recent tasks the profile view shows.
const profileRecentTasks = 5

// BalanceHandler handles balance, tier purchase, and profile requests.
type BalanceHandler struct {
	ledger    service.LedgerService
	accounts  service.AccountService
	tasks     service.DispatchService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewBalanceHandler creates a new BalanceHandler with the given dependencies.
func NewBalanceHandler(
	ledger service.LedgerService,
	accounts service.AccountService,
	tasks service.DispatchService,
	logger *slog.Logger,
) *BalanceHandler {
	return &BalanceHandler{
		ledger:    ledger,
		accounts:  accounts,
		tasks:     tasks,
		validator: validator.New(),
		logger:    logger.With("component", "balance_handler"),
	}
}

// TopUp handles POST /api/balance/topup.
func (h *BalanceHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	accountID, ok := handleAccountID(w, r)
	if !ok {
		return
	}

	var req TopUpRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	balance, err := h.ledger.Deposit(r.Context(), accountID, req.Amount)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, BalanceResponse{Balance: balance})
}

// Purchase handles POST /api/balance/purchase.
func (h *BalanceHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	accountID, ok := handleAccountID(w, r)
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	account, err := h.ledger.PurchaseTier(r.Context(), accountID, domain.Tier(req.Tier))
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, PurchaseResponse{
		Tier:          account.Tier,
		TierExpiresAt: account.TierExpiresAt,
		Balance:       account.Balance,
	})
}

// History handles GET /api/balance/history.
func (h *BalanceHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, ok := handleAccountID(w, r)
	if !ok {
		return
	}

	limit := queryLimit(r)
	if limit < 0 {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
		return
	}

	entries, err := h.ledger.History(r.Context(), accountID, limit)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}

	RespondWithJSON(w, r, http.StatusOK, HistoryResponse{Entries: entries})
}

// Profile handles GET /api/profile.
func (h *BalanceHandler) Profile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := handleAccountID(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), accountID)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	recent, err := h.tasks.List(r.Context(), accountID, profileRecentTasks)
	if err != nil {
		h.logger.Error("failed to list recent tasks for profile",
			"error", err,
			"account_id", accountID)
		RespondWithMappedError(w, r, err)
		return
	}
	if recent == nil {
		recent = []domain.Task{}
	}

	RespondWithJSON(w, r, http.StatusOK, ProfileResponse{
		AccountID:     account.ID,
		Username:      account.Username,
		Tier:          account.Tier,
		TierExpiresAt: account.TierExpiresAt,
		Balance:       account.Balance,
		RecentTasks:   recent,
	})
}
