// Package router sets up all HTTP routes and middleware chains for the
// printdesk server. Routes are organized into a user tier and an admin
// tier, each authorized through the access gate on every request.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"printdesk/internal/authz"
	"printdesk/internal/handlers"
	"printdesk/internal/middleware"
	"printdesk/internal/models"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter may be nil to disable rate limiting
// (tests).
func New(gate *authz.Gate, orders *handlers.Orders, users *handlers.Users, carts *handlers.Carts, limiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	// Health check — no auth.
	r.Get("/health", healthHandler)

	// User tier: any authenticated, unblocked account.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(gate, models.RoleUser))

		r.Post("/submit-order", orders.SubmitOrder)
		r.Post("/submit-stationery-order", orders.SubmitStationeryOrder)
		r.Get("/get-orders", orders.GetOrders)
		r.Post("/confirm-payment", orders.ConfirmPayment)
		r.Get("/get-signed-url", orders.GetSignedURL)

		r.Get("/get-role", users.GetRole)
		r.Get("/get-profile", users.GetProfile)
		r.Post("/update-profile", users.UpdateProfile)
		r.Post("/create-user-profile", users.CreateUserProfile)

		r.Post("/cart/add", carts.Add)
		r.Get("/cart", carts.List)
		r.Post("/cart/remove", carts.Remove)
		r.Post("/cart/clear", carts.Clear)
	})

	// Admin tier: staff operations.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(gate, models.RoleAdmin))

		r.Post("/update-order-status", orders.UpdateOrderStatus)

		r.Get("/get-users", users.GetUsers)
		r.Post("/update-role", users.UpdateRole)
		r.Post("/block-user", users.BlockUser)
		r.Post("/unblock-user", users.UnblockUser)
		r.Post("/delete-user", users.DeleteUser)
		r.Post("/verify-mobile-manual", users.VerifyMobileManual)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
