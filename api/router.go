package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the HTTP surface. Static routes are registered under
// /api/v1 before the /books/{id} wildcard; chi resolves them first.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.metrics.Middleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)

		r.Get("/books", h.ListBooks)
		r.Get("/books/search", h.SearchBooks)
		r.Get("/books/price-range", h.PriceRange)
		r.Get("/books/top-rated", h.TopRated)
		r.Get("/books/{id}", h.BookDetail)
		r.Get("/categories", h.Categories)

		r.Get("/stats/categories", h.StatsCategories)
		r.Get("/stats/overview", h.StatsOverview)

		r.Get("/ml/features", h.MLFeatures)
		r.Get("/ml/training-data", h.MLTrainingData)
		r.Post("/ml/predictions", h.SubmitPredictions)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Post("/scraping/trigger", h.TriggerScraping)
			r.Post("/admin/reload", h.ReloadDataset)
		})
	})

	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))

	return r
}
