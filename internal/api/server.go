// Package api serves the engine's HTTP surface: the analysis and
// validation endpoints the browser UI calls, disease autocomplete, the
// history feed, health, and a websocket progress stream.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/drug-repurposing-engine/internal/config"
	"github.com/drug-repurposing-engine/internal/curated"
	"github.com/drug-repurposing-engine/internal/history"
	"github.com/drug-repurposing-engine/internal/middleware"
	"github.com/drug-repurposing-engine/internal/service"
)

// HealthReporter exposes per-source circuit breaker state for the
// health endpoint.
type HealthReporter interface {
	BreakerStates() map[string]gobreaker.State
}

// Deps carries the collaborators the server routes requests to.
// History, Health and Hub are optional; the matching endpoints degrade
// gracefully when they are absent.
type Deps struct {
	Analysis *service.AnalysisService
	Library  *curated.Library
	History  history.Store
	Health   HealthReporter
	Hub      *ProgressHub
}

// Server represents the HTTP server
type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	logger *logrus.Logger
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(cfg config.ServerConfig, debug bool, deps Deps, logger *logrus.Logger) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	server := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		router: router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "X-Correlation-ID")
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Router exposes the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until ctx is canceled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownTimeout := s.cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("HTTP server shutting down")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/diseases/search", s.handleDiseaseSearch)
	s.router.GET("/history", s.handleHistory)
	s.router.GET("/ws/progress", s.handleProgressSocket)
	s.router.POST("/analyze", s.handleAnalyze)
	s.router.POST("/validate_clinical", s.handleValidate)

	// Alias group used by the deployed UI
	api := s.router.Group("/api")
	{
		api.POST("/analyze", s.handleAnalyze)
		api.POST("/validate_clinical", s.handleValidate)
		api.GET("/health", s.handleHealth)
		api.GET("/diseases/search", s.handleDiseaseSearch)
		api.GET("/history", s.handleHistory)
	}
}
