// Package http provides the identity HTTP surface: registration and login
// handlers, bearer token authentication and per-IP rate limiting.
package http

import (
	"context"

	accessDomain "github.com/allisson/restgate/internal/access/domain"
)

// callerKey is a context key type for storing the authenticated caller.
type callerKey struct{}

// WithCaller stores the authenticated caller in the context.
func WithCaller(ctx context.Context, caller *accessDomain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// GetCaller returns the authenticated caller, or (nil, false) for anonymous requests.
func GetCaller(ctx context.Context) (*accessDomain.Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(*accessDomain.Caller)
	return caller, ok && caller != nil
}
