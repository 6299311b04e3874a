package http

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/restgate/internal/errors"
	"github.com/allisson/restgate/internal/httputil"
)

// ErrOriginNotAllowed is returned by CORSGate.Decide for origins outside the allow-list.
var ErrOriginNotAllowed = apperrors.Wrap(apperrors.ErrOriginNotAllowed, "origin is not in the allow-list")

// CORSGate decides whether a browser origin may reach the gateway.
type CORSGate struct {
	origins  []string
	allowAll bool
}

// NewCORSGate creates a gate for the given allow-list. The entry "*" allows any origin.
func NewCORSGate(origins []string) *CORSGate {
	return &CORSGate{
		origins:  origins,
		allowAll: slices.Contains(origins, "*"),
	}
}

// Decide returns nil when the origin is allowed. An empty origin is a
// non-browser request and is always allowed.
func (g *CORSGate) Decide(origin string) error {
	if origin == "" || g.allowAll || slices.Contains(g.origins, origin) {
		return nil
	}
	return ErrOriginNotAllowed
}

// CORSGateMiddleware rejects requests from origins outside the allow-list with
// 403 before they reach authentication or authorization.
func CORSGateMiddleware(gate *CORSGate, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if err := gate.Decide(origin); err != nil {
			logger.Warn("cors origin rejected",
				slog.String("origin", origin),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
			)
			httputil.AbortWithErrorGin(c, err, nil)
			return
		}
		c.Next()
	}
}

// preflightMiddleware answers every OPTIONS request that got this far with 204.
// Preflights from allowed origins are already answered by the cors middleware.
func preflightMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// createCORSMiddleware creates the CORS header middleware for the allow-list.
// Returns nil when no origins are configured. Credentials are only allowed
// when the list names its origins explicitly.
func createCORSMiddleware(origins []string, logger *slog.Logger) gin.HandlerFunc {
	if len(origins) == 0 {
		return nil
	}

	logger.Info("CORS enabled",
		slog.Int("origin_count", len(origins)),
		slog.Any("origins", origins))

	gate := NewCORSGate(origins)
	config := cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return gate.Decide(origin) == nil
		},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			"Authorization",
			"Content-Type",
		},
		ExposeHeaders: []string{
			"X-Request-Id",
			"X-Total-Count",
			"Link",
		},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           12 * time.Hour,
	}

	return cors.New(config)
}
