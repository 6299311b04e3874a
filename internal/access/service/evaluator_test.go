package service

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accessDomain "github.com/allisson/restgate/internal/access/domain"
)

func newTestEvaluator(t *testing.T, policy accessDomain.UnmaskedPolicy) *Evaluator {
	t.Helper()
	rules, err := accessDomain.ParseRules(
		"products=444,featured_products=444,orders=660,users=600,notes=640",
		"userId",
		"users",
	)
	require.NoError(t, err)
	return NewEvaluator(rules, policy)
}

var alice = &accessDomain.Caller{ID: "1", Email: "alice@example.com"}

func TestEvaluator_Authorize(t *testing.T) {
	evaluator := newTestEvaluator(t, accessDomain.UnmaskedDeny)

	tests := []struct {
		name    string
		req     accessDomain.AuthorizationRequest
		allowed bool
		reason  accessDomain.Reason
		scope   accessDomain.Scope
	}{
		{
			name: "660 owner PUT is allowed",
			req: accessDomain.AuthorizationRequest{
				Collection: "orders", CollectionExists: true, Method: http.MethodPut,
				Caller: alice, Ownership: accessDomain.OwnershipOwned,
			},
			allowed: true, reason: accessDomain.ReasonGranted, scope: accessDomain.ScopeAll,
		},
		{
			name: "660 owner DELETE is denied",
			req: accessDomain.AuthorizationRequest{
				Collection: "orders", CollectionExists: true, Method: http.MethodDelete,
				Caller: alice, Ownership: accessDomain.OwnershipOwned,
			},
			reason: accessDomain.ReasonForbidden,
		},
		{
			name: "444 anonymous GET is allowed",
			req: accessDomain.AuthorizationRequest{
				Collection: "products", CollectionExists: true, Method: http.MethodGet,
			},
			allowed: true, reason: accessDomain.ReasonGranted, scope: accessDomain.ScopeAll,
		},
		{
			name: "444 anonymous POST is unauthenticated",
			req: accessDomain.AuthorizationRequest{
				Collection: "products", CollectionExists: true, Method: http.MethodPost,
			},
			reason: accessDomain.ReasonUnauthenticated,
		},
		{
			name: "444 authenticated POST is forbidden",
			req: accessDomain.AuthorizationRequest{
				Collection: "products", CollectionExists: true, Method: http.MethodPost,
				Caller: alice, Ownership: accessDomain.OwnershipNone,
			},
			reason: accessDomain.ReasonForbidden,
		},
		{
			name: "660 anonymous GET is unauthenticated",
			req: accessDomain.AuthorizationRequest{
				Collection: "orders", CollectionExists: true, Method: http.MethodGet,
			},
			reason: accessDomain.ReasonUnauthenticated,
		},
		{
			name: "660 other user PATCH is allowed",
			req: accessDomain.AuthorizationRequest{
				Collection: "orders", CollectionExists: true, Method: http.MethodPatch,
				Caller: alice, Ownership: accessDomain.OwnershipNotOwned,
			},
			allowed: true, reason: accessDomain.ReasonGranted, scope: accessDomain.ScopeAll,
		},
		{
			name: "600 owner GET item is allowed",
			req: accessDomain.AuthorizationRequest{
				Collection: "users", CollectionExists: true, Method: http.MethodGet,
				Caller: alice, Ownership: accessDomain.OwnershipOwned,
			},
			allowed: true, reason: accessDomain.ReasonGranted, scope: accessDomain.ScopeAll,
		},
		{
			name: "600 other user GET item is forbidden",
			req: accessDomain.AuthorizationRequest{
				Collection: "users", CollectionExists: true, Method: http.MethodGet,
				Caller: alice, Ownership: accessDomain.OwnershipNotOwned,
			},
			reason: accessDomain.ReasonForbidden,
		},
		{
			name: "600 authenticated list is scoped to owned records",
			req: accessDomain.AuthorizationRequest{
				Collection: "users", CollectionExists: true, Method: http.MethodGet,
				Caller: alice, Ownership: accessDomain.OwnershipUndetermined,
			},
			allowed: true, reason: accessDomain.ReasonOwnedOnly, scope: accessDomain.ScopeOwned,
		},
		{
			name: "600 anonymous list is unauthenticated",
			req: accessDomain.AuthorizationRequest{
				Collection: "users", CollectionExists: true, Method: http.MethodGet,
			},
			reason: accessDomain.ReasonUnauthenticated,
		},
		{
			name: "640 owner update reassigning owner is denied",
			req: accessDomain.AuthorizationRequest{
				Collection: "notes", CollectionExists: true, Method: http.MethodPatch,
				Caller: alice, Ownership: accessDomain.OwnershipOwned, OwnerReassigned: true,
			},
			reason: accessDomain.ReasonOwnerReassignment,
		},
		{
			name: "660 reassignment allowed when authenticated bits grant write",
			req: accessDomain.AuthorizationRequest{
				Collection: "orders", CollectionExists: true, Method: http.MethodPatch,
				Caller: alice, Ownership: accessDomain.OwnershipOwned, OwnerReassigned: true,
			},
			allowed: true, reason: accessDomain.ReasonGranted, scope: accessDomain.ScopeAll,
		},
		{
			name: "record without owner field uses authenticated bits",
			req: accessDomain.AuthorizationRequest{
				Collection: "notes", CollectionExists: true, Method: http.MethodPut,
				Caller: alice, Ownership: accessDomain.OwnershipNone,
			},
			reason: accessDomain.ReasonForbidden,
		},
		{
			name: "unsupported verb",
			req: accessDomain.AuthorizationRequest{
				Collection: "products", CollectionExists: true, Method: http.MethodTrace,
			},
			reason: accessDomain.ReasonUnsupportedVerb,
		},
		{
			name: "unknown collection",
			req: accessDomain.AuthorizationRequest{
				Collection: "ghosts", Method: http.MethodGet, Caller: alice,
			},
			reason: accessDomain.ReasonUnknownCollection,
		},
		{
			name: "unmasked collection denied by default",
			req: accessDomain.AuthorizationRequest{
				Collection: "invoices", CollectionExists: true, Method: http.MethodGet, Caller: alice,
			},
			reason: accessDomain.ReasonNoMask,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := evaluator.Authorize(tt.req)
			assert.Equal(t, tt.allowed, first.Allowed)
			assert.Equal(t, tt.reason, first.Reason)
			if tt.allowed {
				assert.Equal(t, tt.scope, first.Scope)
				assert.NoError(t, first.Err())
			} else {
				assert.Error(t, first.Err())
			}

			// Same inputs, same decision.
			for range 5 {
				assert.Equal(t, first, evaluator.Authorize(tt.req))
			}
		})
	}
}

func TestEvaluator_OwnerOnlyFlag(t *testing.T) {
	evaluator := newTestEvaluator(t, accessDomain.UnmaskedDeny)

	decision := evaluator.Authorize(accessDomain.AuthorizationRequest{
		Collection: "notes", CollectionExists: true, Method: http.MethodPut,
		Caller: alice, Ownership: accessDomain.OwnershipOwned,
	})
	require.True(t, decision.Allowed)
	assert.True(t, decision.OwnerOnly)
	assert.Equal(t, accessDomain.ActorOwner, decision.Actor)

	decision = evaluator.Authorize(accessDomain.AuthorizationRequest{
		Collection: "notes", CollectionExists: true, Method: http.MethodGet,
		Caller: alice, Ownership: accessDomain.OwnershipOwned,
	})
	require.True(t, decision.Allowed)
	assert.False(t, decision.OwnerOnly)
}

func TestEvaluator_UnmaskedAllowPolicy(t *testing.T) {
	evaluator := newTestEvaluator(t, accessDomain.UnmaskedAllow)
	assert.Equal(t, accessDomain.UnmaskedAllow, evaluator.Policy())

	decision := evaluator.Authorize(accessDomain.AuthorizationRequest{
		Collection: "invoices", CollectionExists: true, Method: http.MethodDelete,
	})
	assert.True(t, decision.Allowed)
	assert.Equal(t, accessDomain.ReasonUnmasked, decision.Reason)

	// Unknown collections are still rejected before the policy applies.
	decision = evaluator.Authorize(accessDomain.AuthorizationRequest{
		Collection: "invoices", Method: http.MethodGet,
	})
	assert.False(t, decision.Allowed)
	assert.Equal(t, accessDomain.ReasonUnknownCollection, decision.Reason)
}

func TestNewEvaluator_EmptyPolicyDenies(t *testing.T) {
	evaluator := NewEvaluator(nil, "")
	assert.Equal(t, accessDomain.UnmaskedDeny, evaluator.Policy())

	decision := evaluator.Authorize(accessDomain.AuthorizationRequest{
		Collection: "orders", CollectionExists: true, Method: http.MethodGet,
	})
	assert.Equal(t, accessDomain.ReasonNoMask, decision.Reason)
}

func TestEvaluator_ConcurrentUse(t *testing.T) {
	evaluator := newTestEvaluator(t, accessDomain.UnmaskedDeny)
	req := accessDomain.AuthorizationRequest{
		Collection: "orders", CollectionExists: true, Method: http.MethodPut,
		Caller: alice, Ownership: accessDomain.OwnershipOwned,
	}

	done := make(chan accessDomain.Decision, 50)
	for range 50 {
		go func() { done <- evaluator.Authorize(req) }()
	}
	for range 50 {
		assert.True(t, (<-done).Allowed)
	}
}
