/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/parts/*         Part catalog, stock, bulk updates
  /api/transactions/*  Ledger operations and invoice generation
  /api/categories/*    Lookup management
  /api/stats/*         Analytical reads and report export
  /api/invoices/*      Issued invoices
  /api/seed            Demo data loader (dev only)
  /health              Liveness probe
  /metrics             Prometheus (when enabled in config)

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions controls optional router surfaces.
type RouterOptions struct {
	CORSOrigins   []string
	ExposeMetrics bool
	EnableSeed    bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/parts", func(r chi.Router) {
			r.Get("/", h.ListParts)
			r.Post("/", h.CreatePart)
			r.Post("/bulk-stock-update", h.BulkUpdateStock)
			r.Get("/{id}", h.GetPart)
			r.Put("/{id}", h.UpdatePart)
			r.Delete("/{id}", h.DeletePart)
			r.Put("/{id}/stock", h.UpdatePartStock)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Post("/{id}/invoices", h.GenerateInvoice)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/fast-moving", h.GetFastMovingParts)
			r.Get("/inventory", h.GetInventoryStats)
			r.Get("/export", h.ExportInventory)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/{id}", h.GetInvoice)
		})

		if opts.EnableSeed {
			r.Post("/seed", h.SeedDemoData)
		}
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if opts.ExposeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
