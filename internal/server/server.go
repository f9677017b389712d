// Package server exposes rendered briefs and the brief trigger over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"newsbrief/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Generator produces a brief on demand.
type Generator interface {
	Generate(ctx context.Context, req services.GenerateRequest) (*services.GenerateResult, error)
}

// Config holds the listener and content settings
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	OutputDir    string   // Root the briefs are written under
	AdminAPIKey  string   // Empty disables the trigger endpoint
	CORSOrigins  []string // Empty disables CORS
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     Config
	generator  Generator
	log        zerolog.Logger
	started    time.Time
}

// New creates a new HTTP server instance. generator may be nil, which
// disables the trigger endpoint.
func New(cfg Config, generator Generator, log zerolog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		generator: generator,
		log:       log,
		started:   time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/briefs", func(r chi.Router) {
		r.Get("/", s.handleListBriefs)
		r.Get("/{day}", s.handleGetBrief)
		r.With(s.requireAdminAPI).Post("/ingestion/run", s.handleRunBrief)
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Dur("read_timeout", s.config.ReadTimeout).
		Dur("write_timeout", s.config.WriteTimeout).
		Str("output_dir", s.config.OutputDir).
		Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info().Msg("HTTP server stopped")
	return nil
}

// Handler returns the routed handler with middleware (useful for testing)
func (s *Server) Handler() http.Handler {
	return s.router
}
