package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/auth"
	"github.com/Shivanand-hulikatti/club-events/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig collects what NewRouter wires together.
type RouterConfig struct {
	Service *service.EventService
	Auth    *auth.Authenticator
	Log     *zap.Logger
	// Redis enables idempotency keys on mutating routes when non-nil.
	Redis          RedisClient
	IdempotencyTTL time.Duration
	ProcessingTTL  time.Duration
	// Ready backs GET /ready; nil always reports ready.
	Ready func(ctx context.Context) error
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	h := NewEventHandler(cfg.Service, cfg.Log)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(cfg.Log))         // structured access log
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	r.Get("/ready", ReadinessCheck(cfg.Ready, cfg.Log))

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.Auth, cfg.Log))
		if cfg.Redis != nil {
			r.Use(Idempotency(IdempotencyConfig{
				Redis:         cfg.Redis,
				TTL:           cfg.IdempotencyTTL,
				ProcessingTTL: cfg.ProcessingTTL,
				Log:           cfg.Log,
			}))
		}

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", h.ListResources)
			r.Post("/", h.CreateResource)
			r.Put("/{resourceID}", h.UpdateResource)
			r.Patch("/{resourceID}/availability", h.SetResourceAvailability)
		})

		r.Route("/clubs/{clubID}", func(r chi.Router) {
			r.Post("/events", h.CreateEvent)
			r.Get("/feedback", h.ClubFeedback)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetEvent)
				r.Get("/actions", h.AvailableActions)
				r.Put("/", h.UpdateEvent)

				// Lifecycle
				r.Post("/reschedule", h.RescheduleEvent)
				r.Post("/submit", h.Transition(cfg.Service.SubmitEvent))
				r.Post("/faculty-approve", h.Transition(cfg.Service.FacultyApproveEvent))
				r.Post("/approval", h.AdminDecision)
				r.Post("/request-changes", h.RequestChanges)
				r.Post("/publish", h.Transition(cfg.Service.PublishEvent))
				r.Post("/open-registration", h.Transition(cfg.Service.OpenRegistration))
				r.Post("/close-registration", h.Transition(cfg.Service.CloseRegistration))
				r.Post("/start", h.Transition(cfg.Service.StartEvent))
				r.Post("/complete", h.Transition(cfg.Service.CompleteEvent))
				r.Post("/cancel", h.CancelEvent)

				// Registrations
				r.Post("/register", h.Register)
				r.Delete("/register", h.CancelRegistration)
				r.Post("/waitlist/promote", h.PromoteWaitlist)
				r.Get("/registrations", h.ListRegistrations)
				r.Get("/stats", h.EventStats)
				r.Post("/attendance", h.MarkAttendance)

				// Feedback
				r.Post("/feedback", h.SubmitFeedback)
				r.Get("/feedback", h.ListFeedback)
				r.Patch("/feedback", h.ToggleFeedback)

				// Resources
				r.Post("/resources", h.RequestResource)
				r.Post("/resources/faculty-approve", h.FacultyApproveResource)
				r.Post("/resources/{resourceID}/approve", h.AdminApproveResource)
				r.Delete("/resources/{resourceID}", h.RemoveResourceAllocation)
			})
		})
	})

	return r
}
