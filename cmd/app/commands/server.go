package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/restgate/internal/app"
	"github.com/allisson/restgate/internal/config"
)

// listener is a server the gateway runs until shutdown.
type listener interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// RunServer starts the gateway and, when METRICS_PORT is set, the metrics server.
// Blocks until receiving SIGINT/SIGTERM or until a listener fails, then shuts
// every listener down within SHUTDOWN_TIMEOUT_SECONDS.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting server",
		slog.String("version", version),
		slog.String("store_driver", cfg.StoreDriver),
	)

	defer closeContainer(container, logger)

	// Building the server initializes every dependency, so configuration and
	// store failures surface here before anything listens.
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	listeners := []listener{server}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	if metricsServer != nil {
		listeners = append(listeners, metricsServer)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return serve(ctx, logger, cfg, listeners)
}

// serve runs the listeners until ctx is done or one of them fails.
func serve(ctx context.Context, logger *slog.Logger, cfg *config.Config, listeners []listener) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, l := range listeners {
		g.Go(func() error {
			return l.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down listeners")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		var shutdownErrors []error
		for _, l := range listeners {
			if err := l.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, err)
			}
		}
		return errors.Join(shutdownErrors...)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		return err
	}
	return nil
}
