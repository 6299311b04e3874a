package metrics

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/restgate/internal/metrics/metricstest"
)

const (
	requestsTotal   = "test_app_http_requests_total"
	requestDuration = "test_app_http_request_duration_seconds"
	inFlight        = "test_app_http_requests_in_flight"
	authAttempts    = "test_app_auth_attempts_total"
)

func newInstrumentedRouter(t *testing.T) (*gin.Engine, *Provider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider("test_app", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	})

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "test_app", nil))
	return router, provider
}

func serve(router http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHTTPMetricsMiddleware_RecordsRouteTemplate(t *testing.T) {
	router, provider := newInstrumentedRouter(t)
	router.GET("/:collection/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	for _, id := range []string{"1", "2", "3"} {
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/orders/"+id).Code)
	}

	g := provider.Gatherer()
	labels := metricstest.Labels{"method": "GET", "route": "/:collection/:id", "status_code": "200"}
	assert.Equal(t, 3.0, metricstest.CounterSum(t, g, requestsTotal, labels))
	assert.Equal(t, uint64(3), metricstest.HistogramCount(t, g, requestDuration, labels))
	assert.Equal(t, 0.0, metricstest.GaugeSum(t, g, inFlight, nil))
}

func TestHTTPMetricsMiddleware_UnknownRoute(t *testing.T) {
	router, provider := newInstrumentedRouter(t)

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/nowhere").Code)

	assert.Equal(t, 1.0, metricstest.CounterSum(t, provider.Gatherer(), requestsTotal, metricstest.Labels{
		"route": "unknown", "status_code": "404",
	}))
}

func TestHTTPMetricsMiddleware_SkipsMetricsPath(t *testing.T) {
	router, provider := newInstrumentedRouter(t)
	router.GET("/metrics", gin.WrapH(provider.Handler()))

	for range 3 {
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/metrics").Code)
	}

	assert.Equal(t, 0.0, metricstest.CounterSum(t, provider.Gatherer(), requestsTotal, nil))
}

func TestHTTPMetricsMiddleware_FinalStatusAfterError(t *testing.T) {
	router, provider := newInstrumentedRouter(t)
	router.GET("/orders/:id", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/orders/9").Code)

	g := provider.Gatherer()
	assert.Equal(t, 1.0, metricstest.CounterSum(t, g, requestsTotal, nil))
	assert.Equal(t, 1.0, metricstest.CounterSum(t, g, requestsTotal, metricstest.Labels{"status_code": "404"}))
	assert.Equal(t, uint64(1), metricstest.HistogramCount(t, g, requestDuration, nil))
}

func TestHTTPMetricsMiddleware_InFlightBalanced(t *testing.T) {
	t.Run("Denied", func(t *testing.T) {
		router, provider := newInstrumentedRouter(t)
		router.Use(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		})
		router.GET("/orders", func(c *gin.Context) {
			t.Fatal("handler must not run")
		})

		assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/orders").Code)

		g := provider.Gatherer()
		assert.Equal(t, 0.0, metricstest.GaugeSum(t, g, inFlight, nil))
		assert.Equal(t, 1.0, metricstest.CounterSum(t, g, requestsTotal, metricstest.Labels{"status_code": "403"}))
	})

	t.Run("PanicRecoveredDownstream", func(t *testing.T) {
		router, provider := newInstrumentedRouter(t)
		router.Use(gin.Recovery())
		router.GET("/boom", func(c *gin.Context) {
			panic("boom")
		})

		assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/boom").Code)

		g := provider.Gatherer()
		assert.Equal(t, 0.0, metricstest.GaugeSum(t, g, inFlight, nil))
		assert.Equal(t, 1.0, metricstest.CounterSum(t, g, requestsTotal, metricstest.Labels{"status_code": "500"}))
	})

	t.Run("PanicUnwindingThroughMiddleware", func(t *testing.T) {
		router, provider := newInstrumentedRouter(t)
		router.GET("/boom", func(c *gin.Context) {
			panic("boom")
		})

		assert.Panics(t, func() {
			serve(router, http.MethodGet, "/boom")
		})

		g := provider.Gatherer()
		assert.Equal(t, 0.0, metricstest.GaugeSum(t, g, inFlight, nil))
		assert.Equal(t, 1.0, metricstest.CounterSum(t, g, requestsTotal, metricstest.Labels{"status_code": "500"}))
		assert.Equal(t, uint64(1), metricstest.HistogramCount(t, g, requestDuration, nil))
	})
}

func TestHTTPMetricsMiddleware_InFlightDuringRequest(t *testing.T) {
	router, provider := newInstrumentedRouter(t)

	var observed float64
	router.GET("/slow", func(c *gin.Context) {
		observed = metricstest.GaugeSum(t, provider.Gatherer(), inFlight, nil)
		c.Status(http.StatusNoContent)
	})

	serve(router, http.MethodGet, "/slow")

	assert.Equal(t, 1.0, observed)
	assert.Equal(t, 0.0, metricstest.GaugeSum(t, provider.Gatherer(), inFlight, nil))
}

func TestHTTPMetricsMiddleware_Concurrent(t *testing.T) {
	router, provider := newInstrumentedRouter(t)
	router.GET("/products", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})
	router.GET("/orders", func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target := "/products"
			if i%2 == 1 {
				target = "/orders"
			}
			serve(router, http.MethodGet, target)
		}()
	}
	wg.Wait()

	g := provider.Gatherer()
	assert.Equal(t, 0.0, metricstest.GaugeSum(t, g, inFlight, nil))
	assert.Equal(t, 50.0, metricstest.CounterSum(t, g, requestsTotal, nil))
	assert.Equal(t, 25.0, metricstest.CounterSum(t, g, requestsTotal, metricstest.Labels{"status_code": "401"}))
	assert.Equal(t, uint64(50), metricstest.HistogramCount(t, g, requestDuration, nil))
}

func TestHTTPMetricsMiddleware_AuthAttempts(t *testing.T) {
	router, provider := newInstrumentedRouter(t)
	router.POST("/login", func(c *gin.Context) {
		if c.Query("ok") == "1" {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{})
	})
	router.POST("/register", func(c *gin.Context) {
		if c.Query("dup") == "1" {
			c.JSON(http.StatusConflict, gin.H{})
			return
		}
		c.JSON(http.StatusCreated, gin.H{})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	serve(router, http.MethodPost, "/login?ok=1")
	serve(router, http.MethodPost, "/login")
	serve(router, http.MethodPost, "/login")
	serve(router, http.MethodPost, "/register")
	serve(router, http.MethodPost, "/register?dup=1")
	serve(router, http.MethodGet, "/health")

	g := provider.Gatherer()
	assert.Equal(t, 2.0, metricstest.CounterSum(t, g, authAttempts, metricstest.Labels{"outcome": AuthOutcomeSuccess}))
	assert.Equal(t, 2.0, metricstest.CounterSum(t, g, authAttempts, metricstest.Labels{"outcome": AuthOutcomeFailure}))
	assert.Equal(t, 6.0, metricstest.CounterSum(t, g, requestsTotal, nil))
}

func TestHTTPMetricsMiddleware_CollectionsNamedLikeAuthNotCounted(t *testing.T) {
	router, provider := newInstrumentedRouter(t)
	router.POST("/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})
	router.GET("/:collection", func(c *gin.Context) {
		c.JSON(http.StatusForbidden, gin.H{})
	})

	serve(router, http.MethodGet, "/authors")
	serve(router, http.MethodGet, "/registrations")
	serve(router, http.MethodGet, "/oauth_clients")
	serve(router, http.MethodGet, "/login")
	serve(router, http.MethodPost, "/auth")

	g := provider.Gatherer()
	assert.Zero(t, metricstest.CounterSum(t, g, authAttempts, nil))
	assert.Equal(t, 5.0, metricstest.CounterSum(t, g, requestsTotal, nil))
}

func TestHTTPMetricsMiddleware_InstrumentFailureFallsBack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider, err := NewProvider("test_app", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	// Instrument names must start with a letter.
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "9invalid", logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/test").Code)
	assert.Contains(t, buf.String(), "http metrics disabled")
}

func TestIsAuthRoute(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/login", true},
		{"/register", true},
		{"/signin", true},
		{"/signup", true},
		{"/orders", false},
		{"/health", false},
		{"/authors", false},
		{"/registrations", false},
		{"/oauth_clients", false},
		{"/login/:id", false},
		{"/LOGIN", false},
		{"/:collection", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAuthRoute(tt.path))
		})
	}
}

func TestAuthOutcome(t *testing.T) {
	outcome, ok := authOutcome("/login", http.StatusOK)
	assert.True(t, ok)
	assert.Equal(t, AuthOutcomeSuccess, outcome)

	outcome, ok = authOutcome("/register", http.StatusForbidden)
	assert.True(t, ok)
	assert.Equal(t, AuthOutcomeFailure, outcome)

	_, ok = authOutcome("/register", http.StatusTooManyRequests)
	assert.False(t, ok)

	_, ok = authOutcome("/orders", http.StatusUnauthorized)
	assert.False(t, ok)

	_, ok = authOutcome("/:collection", http.StatusForbidden)
	assert.False(t, ok)

	_, ok = authOutcome("", http.StatusUnauthorized)
	assert.False(t, ok)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "unknown", routeLabel(""))
	assert.Equal(t, "/:collection", routeLabel("/:collection"))
}
