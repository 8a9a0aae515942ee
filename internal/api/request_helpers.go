package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hailcast/hailcast-api/internal/api/middleware"
)

// handleAccountID extracts the authenticated account's UUID from the
// request context, writing a 401 response when it is missing. The
// second return value reports whether the handler may proceed.
func handleAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return accountID, true
}

// queryLimit parses the optional ?limit= query parameter. Zero means
// "use the service default"; negative or malformed values are rejected
// by returning -1.
func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return -1
	}
	return limit
}
