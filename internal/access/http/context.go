// Package http provides the gin middleware that authorizes collection requests
// against the access rules before they reach the resource handlers.
package http

import (
	"context"

	accessDomain "github.com/allisson/restgate/internal/access/domain"
)

// decisionKey is a context key type for storing the authorization decision.
type decisionKey struct{}

// WithDecision stores the authorization decision in the context.
func WithDecision(ctx context.Context, decision accessDomain.Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, decision)
}

// GetDecision retrieves the authorization decision from the context.
func GetDecision(ctx context.Context) (accessDomain.Decision, bool) {
	decision, ok := ctx.Value(decisionKey{}).(accessDomain.Decision)
	return decision, ok
}
