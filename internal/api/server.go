// Package api exposes the dashboard over HTTP. The dashboard endpoint
// accepts a query either as URL parameters (GET) or as a JSON body (POST)
// and responds with the aggregated statistics of the matching cohort.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/lyprox-dashboard-server/internal/domain"
	"github.com/lyprox-dashboard-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	cfg     *domain.Config
	query   *service.QueryService
	log     *logrus.Logger
	router  *gin.Engine
	server  *http.Server
	cache   *lru.Cache[string, map[string]any]
	limiter *rate.Limiter
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, query *service.QueryService, logger *logrus.Logger) (*Server, error) {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	cache, err := lru.New[string, map[string]any](cfg.Dashboard.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	server := &Server{
		cfg:     cfg,
		query:   query,
		log:     logger,
		router:  router,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Limit(cfg.Dashboard.RequestsPerSecond), cfg.Dashboard.RequestBurst),
	}

	server.setupRoutes()

	return server, nil
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.log.WithField("addr", addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("starting server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/dashboard", s.handleDashboardGET)
		v1.POST("/dashboard", rateLimitMiddleware(s.limiter), s.handleDashboardPOST)
		v1.GET("/modalities", s.handleModalities)
		v1.GET("/institutions", s.handleInstitutions)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	})
}
