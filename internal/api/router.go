package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apimiddleware "github.com/hailcast/hailcast-api/internal/api/middleware"
	"github.com/hailcast/hailcast-api/internal/service"
	"github.com/hailcast/hailcast-api/internal/service/auth"
)

// RouterDeps bundles the services the HTTP surface is built from.
type RouterDeps struct {
	Accounts     service.AccountService
	Ledger       service.LedgerService
	Dispatch     service.DispatchService
	JWTService   auth.JWTService
	DefaultModel string
	Logger       *slog.Logger
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	authHandler := NewAuthHandler(deps.Accounts, deps.JWTService, deps.Logger)
	balanceHandler := NewBalanceHandler(deps.Ledger, deps.Accounts, deps.Dispatch, deps.Logger)
	taskHandler := NewTaskHandler(deps.Dispatch, deps.DefaultModel, deps.Logger)
	authMiddleware := apimiddleware.NewAuthMiddleware(deps.JWTService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Balance and subscription endpoints
			r.Post("/balance/topup", balanceHandler.TopUp)
			r.Post("/balance/purchase", balanceHandler.Purchase)
			r.Get("/balance/history", balanceHandler.History)
			r.Get("/profile", balanceHandler.Profile)

			// Prediction task endpoints
			r.Post("/tasks/free", taskHandler.CreateFree)
			r.Post("/tasks/paid", taskHandler.CreatePaid)
			r.Get("/tasks", taskHandler.List)
			r.Get("/tasks/{id}", taskHandler.Get)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			deps.Logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
