// Package server provides the HTTP API for the anonymization pipeline:
// detection and redaction endpoints, the health/status surface, and the
// signed audit trail.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/anonymizer"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/audit"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/otel"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/policy"
)

const defaultTimeout = 60 * time.Second

// Server holds all dependencies for the HTTP API.
type Server struct {
	router       *chi.Mux
	pipeline     *anonymizer.Pipeline
	auditStore   *audit.Store
	policyEngine *policy.Engine
	limiter      *RateLimiter
	logger       zerolog.Logger
	apiKey       string
	corsOrigins  []string
	version      string
	startTime    time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithAPIKey enables API-key auth on the processing and audit routes.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithCORSOrigins sets allowed CORS origins (["*"] for any).
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithRateLimiter sets the request rate limiter.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// WithVersion sets the version string reported by the info endpoint.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer builds a Server with the required dependencies and options.
// auditStore and policyEngine may be nil; the corresponding features are
// then disabled.
func NewServer(
	logger zerolog.Logger,
	pipeline *anonymizer.Pipeline,
	auditStore *audit.Store,
	policyEngine *policy.Engine,
	opts ...Option,
) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		pipeline:     pipeline,
		auditStore:   auditStore,
		policyEngine: policyEngine,
		logger:       logger,
		corsOrigins:  []string{"*"},
		version:      "dev",
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler.
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(otel.Middleware())
	r.Use(CORSMiddleware(s.corsOrigins))

	// Unauthenticated operational surface
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleInfo)

	// Processing and audit routes
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKey))
		r.Use(RateLimitMiddleware(s.limiter))
		r.Use(middleware.Timeout(defaultTimeout))

		r.Post("/anonymize", s.handleAnonymize)
		r.Post("/detect", s.handleDetect)

		if s.auditStore != nil {
			r.Get("/v1/audit", s.handleAuditList)
			r.Get("/v1/audit/{id}", s.handleAuditGet)
			r.Get("/v1/audit/{id}/verify", s.handleAuditVerify)
		}
	})

	return r
}
