package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/restgate/internal/errors"
	"github.com/allisson/restgate/internal/httputil"
	"github.com/allisson/restgate/internal/metrics"
)

// MetricsServer exposes the gateway metrics on their own port, away from the
// CORS gate and the access rules.
type MetricsServer struct {
	server *http.Server
	logger *slog.Logger
}

// NewMetricsServer builds the listener for METRICS_PORT. Anything but
// GET /metrics answers with the gateway's JSON 404.
func NewMetricsServer(
	host string,
	port int,
	logger *slog.Logger,
	metricsProvider *metrics.Provider,
) *MetricsServer {
	router := gin.New()
	router.Use(gin.Recovery())
	router.NoRoute(func(c *gin.Context) {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrNotFound, "route not found"), nil)
	})
	if metricsProvider != nil {
		router.GET("/metrics", gin.WrapH(metricsProvider.Handler()))
	}

	return &MetricsServer{
		server: newHTTPServer(host, port, router),
		logger: logger,
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *MetricsServer) GetHandler() http.Handler {
	return s.server.Handler
}

// Start blocks serving metrics until Shutdown.
func (s *MetricsServer) Start(ctx context.Context) error {
	s.logger.Info("metrics listener ready", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics listener on %s: %w", s.server.Addr, err)
	}
	return nil
}

// Shutdown stops the metrics listener, waiting for in-flight scrapes.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.logger.Info("metrics listener stopping", slog.String("addr", s.server.Addr))
	return s.server.Shutdown(ctx)
}
