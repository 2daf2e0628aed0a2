// Package router assembles the chi HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/simplebiz/concierge/internal/http/handlers"
	httpmiddleware "github.com/simplebiz/concierge/internal/http/middleware"
	"github.com/simplebiz/concierge/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	Webhook         *handlers.WhatsAppWebhookHandler
	Appointments    *handlers.AppointmentsHandler
	Slots           *handlers.SlotsHandler
	AdminAuthSecret string
	MetricsHandler  http.Handler
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: health, the gateway webhook, metrics.
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.Webhook.Health)
		public.Post("/webhooks/whatsapp", cfg.Webhook.Handle)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin API, JWT-protected.
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.Appointments != nil {
			api.Get("/appointments", cfg.Appointments.List)
			api.Post("/appointments", cfg.Appointments.Create)
			api.Delete("/appointments/{id}", cfg.Appointments.Cancel)
		}
		if cfg.Slots != nil {
			api.Get("/slots", cfg.Slots.List)
		}
	})

	return r
}
