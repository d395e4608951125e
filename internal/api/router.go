package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"scamguard/internal/api/handlers"
	apimiddleware "scamguard/internal/api/middleware"
	"scamguard/internal/config"
	"scamguard/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	limiter  apimiddleware.RateLimitStore
	metrics  http.Handler
	logger   *logger.Logger
}

// NewRouter creates a new Router instance. limiter and metrics may be nil.
func NewRouter(cfg config.Config, h *handlers.Handlers, limiter apimiddleware.RateLimitStore, metrics http.Handler, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		limiter:  limiter,
		metrics:  metrics,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)

	// CORS
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Public routes
	router.Group(func(pub chi.Router) {
		pub.Get("/health", r.handlers.Health.Check)
		pub.Get("/ready", r.handlers.Health.Ready)
		if r.metrics != nil {
			pub.Handle("/metrics", r.metrics)
		}
	})

	// Live alert feed; long-lived so no request timeout
	router.Group(func(ws chi.Router) {
		if r.config.Auth.Enabled {
			ws.Use(apimiddleware.APIKeyAuth(r.config.Auth.APIKeys))
		}
		ws.Get("/ws/alerts", r.handlers.Streaming.HandleWebSocket)
	})

	// API v1 routes
	router.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(30 * time.Second))

		if r.config.RateLimit.Enabled && r.limiter != nil {
			api.Use(apimiddleware.RateLimiter(r.limiter, r.config.RateLimit, r.logger))
		}
		if r.config.Auth.Enabled {
			api.Use(apimiddleware.APIKeyAuth(r.config.Auth.APIKeys))
		}

		// Message triage
		api.Route("/messages", func(msgs chi.Router) {
			msgs.Post("/evaluate", r.handlers.Messages.Evaluate)
			msgs.Post("/confirm", r.handlers.Messages.Confirm)
		})

		// Call context
		api.Route("/calls", func(calls chi.Router) {
			calls.Post("/incoming", r.handlers.Calls.Incoming)
			calls.Post("/suspicious", r.handlers.Calls.RecordSuspicious)
		})

		// Blocked/warned history
		api.Get("/blocked", r.handlers.Blocked.List)

		// Adaptive learning
		api.Route("/learned", func(learned chi.Router) {
			learned.Get("/", r.handlers.Learned.List)
			learned.Get("/export", r.handlers.Learned.Export)
			learned.Post("/import", r.handlers.Learned.Import)
		})

		// Trusted contacts
		api.Route("/contacts", func(contacts chi.Router) {
			contacts.Get("/", r.handlers.Contacts.List)
			contacts.Post("/", r.handlers.Contacts.Add)
			contacts.Delete("/{number}", r.handlers.Contacts.Remove)
		})
		api.Get("/trust", r.handlers.Contacts.Check)

		// Audit log and guardian reporting
		api.Get("/events", r.handlers.Events.List)
		api.Get("/summary/weekly", r.handlers.Summary.Weekly)

		api.Get("/stream/stats", r.handlers.Streaming.GetStats)
	})

	return router
}
