// Package server exposes the content pipeline over HTTP
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dealerstudio/internal/config"
	"dealerstudio/internal/core"
	"dealerstudio/internal/logger"
	"dealerstudio/internal/selector"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ContentService is the part of the pipeline the HTTP layer calls
type ContentService interface {
	GenerateWeeklyContent(ctx context.Context, userID string, carIDs []string) (*core.PipelineResult, error)
	Persist(ctx context.Context, result *core.PipelineResult) error
	RankCars(ctx context.Context, userID string, count int) (selector.Ranking, error)
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	service    ContentService
	db         Pinger
	config     config.Server
	log        *zerolog.Logger
	validate   *validator.Validate
	now        func() time.Time
}

// New creates a new HTTP server instance. db may be nil when no database is configured.
func New(service ContentService, db Pinger, cfg config.Server) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		service:  service,
		db:       db,
		config:   cfg,
		log:      logger.Get(),
		validate: validator.New(),
		now:      time.Now,
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

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300, // Maximum value not ignored by any major browsers
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireAPIToken)

		// Generation can take minutes; it is bounded by the server write timeout
		r.Post("/content/generate", s.handleGenerateContent)

		r.With(middleware.Timeout(30*time.Second)).
			Get("/dealers/{userID}/cars/ranked", s.handleRankedCars)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Dur("read_timeout", s.config.ReadTimeout).
		Dur("write_timeout", s.config.WriteTimeout).
		Bool("auth", s.config.APIToken != "").
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

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
