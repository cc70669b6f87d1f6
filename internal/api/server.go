// Package api serves the safety engines over a gin REST API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/metrics"
	"github.com/rx-safety-engine/internal/middleware"
	"github.com/rx-safety-engine/internal/scheduler"
	"github.com/rx-safety-engine/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Options carries the server's collaborators.
type Options struct {
	Server  domain.ServerConfig
	Auth    domain.AuthConfig
	Engines *service.Engines
	Store   domain.HealthChecker
	Driver  string
	Version string
	Probe   *scheduler.HealthProbe // optional
	Debug   bool
}

// Server represents the HTTP server
type Server struct {
	opts   Options
	logger *logrus.Logger
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(logger *logrus.Logger, opts Options) *Server {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.RequestTimeout(opts.Server.RequestTimeout))

	s := &Server{
		opts:   opts,
		logger: logger,
		router: router,
	}
	s.setupRoutes()

	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.opts.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(s.opts.Server.RateLimitRPS, s.opts.Server.RateLimitBurst)

	v1 := s.router.Group("/api/v1")
	v1.Use(limiter.Middleware())
	v1.Use(middleware.BearerAuth(s.opts.Auth))
	{
		v1.GET("/drugs/search", s.handleSearch)
		v1.GET("/drugs/:name", s.handleGetDrug)
		v1.POST("/interactions", s.handleInteractions)
		v1.POST("/dosage", s.handleDosage)
		v1.POST("/alternatives", s.handleAlternatives)
		v1.POST("/analysis", s.handleAnalysis)
	}
}
