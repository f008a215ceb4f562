package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventhub/internal/api/handlers"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(eventHandler *handlers.EventHandler, ruleHandler *handlers.RuleHandler, statusHandler *handlers.StatusHandler, wsHandler *handlers.WebSocketHandler) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		// Live feed connection endpoint
		r.Get("/ws", wsHandler.Serve)

		r.Get("/status", statusHandler.GetStatus)
		r.Get("/health", statusHandler.GetHealth)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.Query)
			r.Post("/", eventHandler.Submit)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", ruleHandler.GetAll)
			r.Post("/", ruleHandler.Create)
			r.Get("/executions/recent", ruleHandler.GetRecentExecutions)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", ruleHandler.Get)
				r.Put("/", ruleHandler.Update)
				r.Delete("/", ruleHandler.Delete)
				r.Patch("/toggle", ruleHandler.Toggle)
				r.Get("/executions", ruleHandler.GetExecutions)
			})
		})
	})

	return r
}
