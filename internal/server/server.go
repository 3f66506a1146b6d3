package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alkime/scribe/internal/app"
	"github.com/alkime/scribe/internal/config"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	config *config.Config
	logger *slog.Logger
	router *gin.Engine
	app    *app.App

	// closed when Run starts shutting down; long-lived streams end on it
	stopping     chan struct{}
	stoppingOnce sync.Once
}

// New creates a new Server instance
func New(cfg *config.Config, logger *slog.Logger, a *app.App) *Server {
	// Set Gin mode based on environment
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.MaxMultipartMemory = 32 << 20

	server := &Server{
		config: cfg,
		logger: logger.With("component", "server"),
		router:   router,
		app:      a,
		stopping: make(chan struct{}),
	}

	// Setup middleware and routes
	setupSecurityMiddleware(router, cfg, logger)
	router.Use(requestID())
	server.setupRoutes()

	return server
}

// Router exposes the handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "port", s.config.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	s.stop()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// stop ends open event streams so Shutdown does not wait on them.
func (s *Server) stop() {
	s.stoppingOnce.Do(func() { close(s.stopping) })
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/credential", s.handleGetCredential)
		api.PUT("/credential", s.handlePutCredential)
		api.DELETE("/credential", s.handleDeleteCredential)

		api.GET("/transcripts", s.handleListTranscripts)
		api.POST("/transcripts/refresh", s.handleRefreshTranscripts)
		api.POST("/transcripts/:id/select", s.handleSelectTranscript)

		api.GET("/selection", s.handleGetSelection)
		api.POST("/selection/retry", s.handleRetrySelection)

		api.POST("/uploads", s.handleUpload)
		api.GET("/uploads/progress", s.handleUploadProgress)

		api.GET("/events", s.handleEvents)
	}

	setupStatic(s.router)
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "scribe",
	})
}
