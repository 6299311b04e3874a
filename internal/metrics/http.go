package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Auth attempt outcomes.
const (
	AuthOutcomeSuccess = "success"
	AuthOutcomeFailure = "failure"
)

// DefaultSkipPaths are excluded from request instrumentation.
var DefaultSkipPaths = []string{"/metrics"}

// AuthRoutes are the route templates counted as authentication attempts.
var AuthRoutes = []string{"/login", "/register", "/signin", "/signup"}

// httpMetrics holds HTTP-specific metric instruments.
type httpMetrics struct {
	requestCounter metric.Int64Counter
	durationHisto  metric.Float64Histogram
	inFlight       metric.Int64UpDownCounter
	authAttempts   metric.Int64Counter
	skipPaths      []string
}

func newHTTPMetrics(meterProvider metric.MeterProvider, namespace string) (*httpMetrics, error) {
	meter := meterProvider.Meter(namespace)

	requestCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	inFlight, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_http_requests_in_flight", namespace),
		metric.WithDescription("Number of HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-flight gauge: %w", err)
	}

	authAttempts, err := meter.Int64Counter(
		fmt.Sprintf("%s_auth_attempts_total", namespace),
		metric.WithDescription("Total number of authentication attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth attempts counter: %w", err)
	}

	return &httpMetrics{
		requestCounter: requestCounter,
		durationHisto:  durationHisto,
		inFlight:       inFlight,
		authAttempts:   authAttempts,
	}, nil
}

// HTTPMetricsMiddleware returns a Gin middleware that records HTTP request metrics.
//
// For every request outside skipPaths (default /metrics) it tracks:
//   - <ns>_http_requests_in_flight: incremented on entry, decremented exactly once on completion
//   - <ns>_http_requests_total and <ns>_http_request_duration_seconds labelled with
//     method, route (the gin route template, "unknown" when none matched) and status_code
//   - <ns>_auth_attempts_total{outcome} for login/register style routes
//
// Completion is recorded from a deferred call, so aborted chains and panics are
// counted too. A panic is recorded as status 500 and re-raised.
func HTTPMetricsMiddleware(
	meterProvider metric.MeterProvider,
	namespace string,
	logger *slog.Logger,
	skipPaths ...string,
) gin.HandlerFunc {
	metrics, err := newHTTPMetrics(meterProvider, namespace)
	if err != nil {
		// If metric creation fails, return a no-op middleware
		if logger != nil {
			logger.Error("http metrics disabled", slog.Any("error", err))
		}
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if len(skipPaths) == 0 {
		skipPaths = DefaultSkipPaths
	}
	metrics.skipPaths = skipPaths

	return metrics.handle
}

func (m *httpMetrics) handle(c *gin.Context) {
	if slices.Contains(m.skipPaths, c.Request.URL.Path) {
		c.Next()
		return
	}

	// The request context may be cancelled by a client disconnect; metric
	// recording must not depend on it.
	ctx := context.WithoutCancel(c.Request.Context())
	start := time.Now()
	method := c.Request.Method

	m.inFlight.Add(ctx, 1)

	var once sync.Once
	finish := func(status int) {
		once.Do(func() {
			m.inFlight.Add(ctx, -1)

			attrs := metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("route", routeLabel(c.FullPath())),
				attribute.String("status_code", strconv.Itoa(status)),
			)
			m.requestCounter.Add(ctx, 1, attrs)
			m.durationHisto.Record(ctx, time.Since(start).Seconds(), attrs)

			if outcome, ok := authOutcome(c.FullPath(), status); ok {
				m.authAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
			}
		})
	}

	defer func() {
		if r := recover(); r != nil {
			finish(http.StatusInternalServerError)
			panic(r)
		}
		finish(c.Writer.Status())
	}()

	c.Next()
}

// routeLabel returns the route template, or "unknown" when no route matched.
func routeLabel(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

// IsAuthRoute reports whether a matched route template is one of AuthRoutes.
// Unmatched requests have an empty template and never count.
func IsAuthRoute(route string) bool {
	return slices.Contains(AuthRoutes, route)
}

// authOutcome classifies the final status of an auth route request.
func authOutcome(route string, status int) (string, bool) {
	if !IsAuthRoute(route) {
		return "", false
	}
	switch status {
	case http.StatusOK, http.StatusCreated:
		return AuthOutcomeSuccess, true
	case http.StatusUnauthorized, http.StatusForbidden:
		return AuthOutcomeFailure, true
	default:
		return "", false
	}
}
