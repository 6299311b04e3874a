// Package http provides the gateway HTTP server, its middleware chain and route wiring.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	accessHTTP "github.com/allisson/restgate/internal/access/http"
	accessService "github.com/allisson/restgate/internal/access/service"
	"github.com/allisson/restgate/internal/config"
	apperrors "github.com/allisson/restgate/internal/errors"
	"github.com/allisson/restgate/internal/httputil"
	identityHTTP "github.com/allisson/restgate/internal/identity/http"
	identityUseCase "github.com/allisson/restgate/internal/identity/usecase"
	"github.com/allisson/restgate/internal/metrics"
	resourceHTTP "github.com/allisson/restgate/internal/resource/http"
	"github.com/allisson/restgate/internal/store"
)

// Server represents the gateway HTTP server.
type Server struct {
	server      *http.Server
	logger      *slog.Logger
	router      *gin.Engine
	store       store.Store
	serviceName string
	startedAt   time.Time
}

// NewServer creates a new gateway server. The router is installed by SetupRouter.
func NewServer(s store.Store, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		logger:      logger,
		store:       s,
		serviceName: "restgate",
		startedAt:   time.Now(),
		server:      newHTTPServer(host, port, nil),
	}
}

// newHTTPServer returns an http.Server with the gateway's listener timeouts.
func newHTTPServer(host string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// RouterDeps groups the collaborators the gateway routes are built from.
type RouterDeps struct {
	Evaluator       *accessService.Evaluator
	UserUseCase     identityUseCase.UserUseCase
	IdentityHandler *identityHTTP.IdentityHandler
	ResourceHandler *resourceHTTP.ResourceHandler
	MetricsProvider *metrics.Provider
}

// SetupRouter builds the gin engine with the full middleware chain.
//
// Order: request id, instrumentation, access log, recovery, CORS gate, CORS
// headers. Auth routes add per-IP rate limiting. Collection routes add token
// authentication followed by authorization, so health, metrics and the auth
// routes ignore the Authorization header. The context bounds background
// goroutines such as the rate limiter cleanup.
func (s *Server) SetupRouter(ctx context.Context, cfg *config.Config, deps RouterDeps) {
	if cfg.ServiceName != "" {
		s.serviceName = cfg.ServiceName
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	if deps.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(
			deps.MetricsProvider.MeterProvider(),
			cfg.MetricsNamespace,
			s.logger,
		))
	}
	router.Use(CustomLoggerMiddleware(s.logger))
	router.Use(gin.Recovery())
	router.Use(CORSGateMiddleware(NewCORSGate(cfg.CORSOrigins()), s.logger))
	if corsMiddleware := createCORSMiddleware(cfg.CORSOrigins(), s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	router.Use(preflightMiddleware())

	router.NoRoute(func(c *gin.Context) {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrNotFound, "route not found"), nil)
	})
	router.NoMethod(func(c *gin.Context) {
		httputil.HandleErrorGin(c, apperrors.ErrMethodNotAllowed, nil)
	})

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)
	if cfg.MetricsPort == 0 && deps.MetricsProvider != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsProvider.Handler()))
	}

	auth := router.Group("")
	if cfg.RateLimitAuthEnabled {
		auth.Use(identityHTTP.AuthRateLimitMiddleware(
			ctx,
			cfg.RateLimitAuthRequestsPerSec,
			cfg.RateLimitAuthBurst,
			s.logger,
		))
	}
	auth.POST("/register", deps.IdentityHandler.RegisterHandler)
	auth.POST("/signup", deps.IdentityHandler.RegisterHandler)
	auth.POST("/login", deps.IdentityHandler.LoginHandler)
	auth.POST("/signin", deps.IdentityHandler.LoginHandler)

	collections := router.Group("/:collection")
	collections.Use(
		identityHTTP.AuthenticationMiddleware(deps.UserUseCase, s.logger),
		accessHTTP.AuthorizationMiddleware(deps.Evaluator, s.store, s.logger),
	)
	{
		collections.GET("", deps.ResourceHandler.ListHandler)
		collections.POST("", deps.ResourceHandler.CreateHandler)
		collections.GET("/:id", deps.ResourceHandler.GetHandler)
		collections.PUT("/:id", deps.ResourceHandler.ReplaceHandler)
		collections.PATCH("/:id", deps.ResourceHandler.PatchHandler)
		collections.DELETE("/:id", deps.ResourceHandler.DeleteHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness without touching the store.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    int64(time.Since(s.startedAt).Seconds()),
		"service":   s.serviceName,
	})
}

// readinessHandler reports whether the resource store is reachable.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"store": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("store health check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"store": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"store": "ok"},
	})
}
