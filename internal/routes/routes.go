package routes

import (
	"github.com/datatrace-io/datatrace/internal/auth"
	"github.com/datatrace-io/datatrace/internal/handlers"
	"github.com/datatrace-io/datatrace/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	searchHandler *handlers.SearchHandler,
	exportHandler *handlers.ExportHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	users auth.ActiveUserFetcher,
) {
	searchLimit := middleware.DefaultSearchRateLimit()
	exportLimit := middleware.DefaultExportRateLimit()

	// Every route requires an authenticated, active account.
	router.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager, users))

		r.With(middleware.RateLimitByUser(searchLimit)).Post("/search", searchHandler.Search)
		r.With(middleware.RateLimitByUser(searchLimit)).Post("/search/within", searchHandler.SearchWithin)
		r.With(middleware.RateLimitByUser(exportLimit)).Post("/search/{id}/export", exportHandler.Export)

		r.Get("/persons/{id}", searchHandler.GetPerson)
		r.Get("/stats", searchHandler.GetStats)
		r.Get("/usage", searchHandler.GetUsage)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole("admin"))
			r.Post("/admin/usage/reset", adminHandler.ResetUsage)
			r.Get("/admin/usage/next-reset", adminHandler.NextReset)
		})
	})
}
