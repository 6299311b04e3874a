package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	accessDomain "github.com/allisson/restgate/internal/access/domain"
	accessService "github.com/allisson/restgate/internal/access/service"
	"github.com/allisson/restgate/internal/httputil"
	identityHTTP "github.com/allisson/restgate/internal/identity/http"
	"github.com/allisson/restgate/internal/store"
)

// AuthorizationMiddleware evaluates every collection request with the evaluator.
//
// It reads the :collection and :id route parameters, resolves ownership from
// the stored record or the request body, and stores the decision in the
// request context for the resource handlers. Denied requests are aborted with
// the status the decision maps to (401, 403, 404 or 405).
//
// MUST be used after AuthenticationMiddleware.
func AuthorizationMiddleware(
	evaluator *accessService.Evaluator,
	s store.Store,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		collection := c.Param("collection")
		id := c.Param("id")
		caller, _ := identityHTTP.GetCaller(ctx)

		exists, err := s.HasCollection(ctx, collection)
		if err != nil {
			httputil.AbortWithErrorGin(c, err, logger)
			return
		}

		req := accessDomain.AuthorizationRequest{
			Collection:       collection,
			CollectionExists: exists,
			Method:           c.Request.Method,
			Caller:           caller,
		}

		if rule, ok := evaluator.Rule(collection); ok && exists {
			ownership, err := resolveOwnership(ctx, s, c.Request, ownershipTarget{
				Method:     c.Request.Method,
				Collection: collection,
				ID:         id,
				OwnerField: rule.OwnerField,
				Caller:     caller,
			})
			if err != nil {
				httputil.AbortWithErrorGin(c, err, logger)
				return
			}
			req.Ownership = ownership.Ownership
			req.OwnerReassigned = ownership.OwnerReassigned
		}

		decision := evaluator.Authorize(req)
		if !decision.Allowed {
			logger.Info("access denied",
				slog.String("collection", collection),
				slog.String("method", req.Method),
				slog.String("actor", decision.Actor.String()),
				slog.String("reason", string(decision.Reason)),
			)
			httputil.AbortWithErrorGin(c, decision.Err(), logger)
			return
		}

		c.Request = c.Request.WithContext(WithDecision(ctx, decision))
		c.Next()
	}
}
