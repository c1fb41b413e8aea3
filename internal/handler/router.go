package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/event-signup/internal/telemetry"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RouterConfig lists what NewRouter mounts. Nil Audit, WebSocket and Tracer
// leave the matching routes or middleware out.
type RouterConfig struct {
	Events        EventService
	Registrations RegistrationService
	Audit         AuditReader
	Health        Pinger
	WebSocket     http.Handler
	Tracer        trace.Tracer
	Logger        *zap.Logger
	FrontendURL   string
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(ClientIP)
	if cfg.Tracer != nil {
		r.Use(telemetry.Middleware(cfg.Tracer))
	}
	r.Use(Logger(log))
	r.Use(CORS(cfg.FrontendURL))

	r.Get("/health", HealthCheck(cfg.Health))

	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket)
	}

	events := NewEventHandler(cfg.Events, cfg.Registrations, log)
	r.Route("/api", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", events.ListEvents)
			r.Post("/", events.CreateEvent)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", events.GetEvent)
				r.Patch("/", events.UpdateEvent)
				r.Delete("/", events.DeleteEvent)

				r.Route("/inscriptions", func(r chi.Router) {
					r.Get("/", events.ListRegistrations)
					r.Post("/", events.Register)
					r.Delete("/", events.Cancel)
					r.Patch("/{rid}", events.UpdateRegistration)
				})
			})
		})

		if cfg.Audit != nil {
			audit := NewAuditHandler(cfg.Audit, log)
			r.Get("/audit", audit.List)
			r.Get("/audit/stats", audit.Stats)
		}
	})

	return r
}
