package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/hachizeus/anzia-auth/internal/auth"
	"github.com/hachizeus/anzia-auth/internal/handlers"
	"github.com/hachizeus/anzia-auth/internal/metrics"
	"github.com/hachizeus/anzia-auth/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	tokenManager *auth.TokenManager,
	users auth.UserFetcher,
	logger *slog.Logger,
	m *metrics.Metrics,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes. Login is IP rate limited on top of the per-identifier
	// lockout; the anti-forgery endpoint is safe and unauthenticated.
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.Get("/auth/csrf", authHandler.CSRFToken)

	// Protected routes: bearer token plus double-submit check on mutations
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))
		r.Use(middleware.CSRFProtection(logger, m))

		r.Get("/auth/me", authHandler.Me)
		r.Post("/auth/logout", authHandler.Logout)

		r.Get("/users/{id}", userHandler.GetUser)
		r.Put("/users/{id}", userHandler.UpdateUser)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(users, "admin"))
			r.Post("/auth/register", authHandler.Register)
		})
	})
}
