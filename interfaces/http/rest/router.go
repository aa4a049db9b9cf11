package rest

import (
	"context"
	"net/http"
	"time"

	cmdhandlers "mindtrack/application/commands/handlers"
	"mindtrack/application/queries"
	"mindtrack/application/services"
	"mindtrack/interfaces/http/rest/handlers"
	"mindtrack/interfaces/http/rest/middleware"
	"mindtrack/pkg/auth"
	"mindtrack/pkg/common"
	apperrors "mindtrack/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// ServiceName names the service in traces
const ServiceName = "mindtrack-api"

// ReadinessCheck is one dependency checked by /ready
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// RateLimit configures a per-IP limit on one endpoint
type RateLimit struct {
	Limiter   *auth.IPRateLimiter
	PerMinute int
}

// Dependencies are the collaborators the router wires into handlers
type Dependencies struct {
	Identity     *services.IdentityService
	Orchestrator *cmdhandlers.SubmitEntryOrchestrator
	Queries      *queries.EntryQueryService

	Readiness []ReadinessCheck
	// Metrics serves /metrics and records HTTP metrics when set
	Metrics interface {
		middleware.HTTPObserver
		Handler() http.Handler
	}

	LoginLimit   *RateLimit
	JournalLimit *RateLimit

	CORSAllowedOrigins []string
	SecureCookies      bool
	EnableTracing      bool
	TrustProxyHeaders  bool
	Debug              bool
}

// Router creates and configures the HTTP router
type Router struct {
	deps         Dependencies
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(deps Dependencies, logger *zap.Logger) *Router {
	return &Router{
		deps:         deps,
		errorHandler: apperrors.NewErrorHandler(logger, deps.Debug),
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	// rate limiters key on RemoteAddr; only rewrite it behind a trusted proxy
	if rt.deps.TrustProxyHeaders {
		router.Use(chimiddleware.RealIP)
	}
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.deps.EnableTracing {
		router.Use(middleware.Tracing(ServiceName))
	}
	if rt.deps.Metrics != nil {
		router.Use(middleware.Metrics(rt.deps.Metrics))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.deps.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.Handle(w, r, apperrors.NewNotFoundError("route "+r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, handlers.MsgMethodNotAllowed)
	})

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.deps.Metrics != nil {
		router.Handle("/metrics", rt.deps.Metrics.Handler())
	}

	sessions := middleware.NewSessionMiddleware(rt.deps.Identity, rt.errorHandler, rt.logger, rt.deps.SecureCookies)
	authHandler := handlers.NewAuthHandler(rt.deps.Identity, rt.errorHandler, rt.logger, rt.deps.SecureCookies)
	journalHandler := handlers.NewJournalHandler(rt.deps.Orchestrator, rt.errorHandler, rt.logger)
	entryHandler := handlers.NewEntryHandler(rt.deps.Queries, rt.errorHandler, rt.logger)

	router.Get("/auth/callback", authHandler.Callback)

	router.Route("/api", func(r chi.Router) {
		// login and journal answer 405 themselves, so they take every method
		r.With(rt.limit(rt.deps.LoginLimit)...).HandleFunc("/login", authHandler.Login)
		r.With(append(rt.limit(rt.deps.JournalLimit), sessions.Optional)...).HandleFunc("/journal", journalHandler.Submit)

		r.With(sessions.Optional).Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(sessions.Require)
			r.Get("/session", authHandler.Session)
			r.Get("/dashboard", entryHandler.Dashboard)
			r.Get("/entries", entryHandler.ListEntries)
			r.Get("/insights", entryHandler.Insights)
		})
	})

	return router
}

func (rt *Router) limit(cfg *RateLimit) []func(http.Handler) http.Handler {
	if cfg == nil || cfg.Limiter == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{
		middleware.RateLimit(cfg.Limiter, cfg.PerMinute, rt.errorHandler, rt.logger),
	}
}

// healthCheck handles liveness checks
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck pings every registered dependency
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(rt.deps.Readiness))
	for _, check := range rt.deps.Readiness {
		if err := check.Ping(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.String("check", check.Name), zap.Error(err))
			checks[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[check.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	common.RespondJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}
