package router

import (
	"net/http"

	_ "go-marketplace-api/docs"
	"go-marketplace-api/handler"
	"go-marketplace-api/metrics"
	"go-marketplace-api/model"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// NewRouter registers every route. requireAuth guards routes that need an
// access token; limiter throttles the credential endpoints and may be nil.
func NewRouter(authHandler *handler.AuthHandler, userHandler *handler.UserHandler, requireAuth func(http.Handler) http.Handler, limiter *handler.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Auth
	mux.Handle("POST /api/auth/register", limiter.Middleware(handler.ErrorHandlingMiddleware(authHandler.Register)))
	mux.Handle("POST /api/auth/login", limiter.Middleware(handler.ErrorHandlingMiddleware(authHandler.Login)))
	mux.Handle("POST /api/auth/refresh", limiter.Middleware(handler.ErrorHandlingMiddleware(authHandler.Refresh)))
	mux.Handle("POST /api/auth/logout", handler.ErrorHandlingMiddleware(authHandler.Logout))
	mux.Handle("GET /api/auth/profile", requireAuth(handler.ErrorHandlingMiddleware(authHandler.Profile)))

	// Admin
	admin := func(h http.Handler) http.Handler {
		return requireAuth(handler.RequireRole(model.RoleAdmin)(h))
	}
	mux.Handle("GET /api/admin/users", admin(handler.ErrorHandlingMiddleware(userHandler.ListUsers)))
	mux.Handle("PUT /api/admin/users/{id}/roles", admin(handler.ErrorHandlingMiddleware(userHandler.UpdateUserRoles)))

	return metrics.Instrument(mux)
}
