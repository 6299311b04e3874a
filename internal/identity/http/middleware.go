package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	accessDomain "github.com/allisson/restgate/internal/access/domain"
	"github.com/allisson/restgate/internal/httputil"
	"github.com/allisson/restgate/internal/identity/domain"
	identityUseCase "github.com/allisson/restgate/internal/identity/usecase"
)

const bearerPrefix = "bearer "

// AuthenticationMiddleware decodes the bearer token of the request.
//
// Requests without an Authorization header continue as anonymous. A header that
// is not a bearer token, or a token that fails verification, is rejected with
// 401. A verified token stores the caller in the request context, where
// GetCaller finds it.
func AuthenticationMiddleware(userUseCase identityUseCase.UserUseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.AbortWithErrorGin(c, domain.ErrInvalidToken, logger)
			return
		}

		token := strings.TrimSpace(authHeader[len(bearerPrefix):])
		if token == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.AbortWithErrorGin(c, domain.ErrInvalidToken, logger)
			return
		}

		claims, err := userUseCase.Authenticate(c.Request.Context(), token)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.AbortWithErrorGin(c, err, logger)
			return
		}

		caller := &accessDomain.Caller{ID: claims.Subject, Email: claims.Email}
		c.Request = c.Request.WithContext(WithCaller(c.Request.Context(), caller))

		logger.Debug("authentication successful", slog.String("user_id", caller.ID))
		c.Next()
	}
}
