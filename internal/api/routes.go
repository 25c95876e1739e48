package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/loadpoint/broker-outreach/internal/auth"
)

// setupRoutes configures all API routes. Everything under /api requires a
// valid carrier token; health endpoints stay open for probes.
func setupRoutes(h *Handlers, verifier *auth.Verifier) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://app.loadpoint.io", "http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health checks (no auth required)
	if h.health != nil {
		r.Get("/health", h.health.HandleHealth)
		r.Get("/health/live", h.health.HandleLiveness)
		r.Get("/health/ready", h.health.HandleReadiness)
	}

	// API routes (protected by carrier token)
	r.Route("/api", func(r chi.Router) {
		if verifier != nil {
			r.Use(verifier.Middleware)
		}

		r.Route("/brokers", func(r chi.Router) {
			r.Post("/", h.CreateBroker)
			r.Get("/", h.ListBrokers)
			r.Get("/attention", h.NeedsAttention)

			r.Route("/{brokerID}", func(r chi.Router) {
				r.Get("/", h.GetBroker)
				r.Put("/", h.UpdateBroker)
				r.Delete("/", h.DeleteBroker)
				r.Post("/score", h.ScoreBroker)
				r.Post("/responded", h.MarkResponded)
			})
		})

		// Shared lead pool and target ranking across CRM + pool
		r.Get("/leads", h.ListLeads)
		r.Get("/targets", h.RankTargets)

		r.Route("/outreach", func(r chi.Router) {
			r.Post("/", h.InitiateOutreach)
			r.Post("/sweep", h.TriggerSweep)
		})

		// Calling-window check for a state
		r.Get("/compliance/{state}", h.CheckCompliance)
	})

	return r
}
