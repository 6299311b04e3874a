package domain

// Reason explains a decision.
type Reason string

const (
	ReasonGranted           Reason = "granted"
	ReasonOwnedOnly         Reason = "owned_only"
	ReasonUnmasked          Reason = "unmasked"
	ReasonUnsupportedVerb   Reason = "unsupported_verb"
	ReasonUnknownCollection Reason = "unknown_collection"
	ReasonNoMask            Reason = "no_mask"
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonForbidden         Reason = "forbidden"
	ReasonOwnerReassignment Reason = "owner_reassignment"
)

// Scope limits what an allowed request may see.
type Scope string

const (
	// ScopeAll means the request is not restricted.
	ScopeAll Scope = "all"
	// ScopeOwned means a listing must be filtered to records the caller owns.
	ScopeOwned Scope = "owned"
)

// Caller is the verified identity behind a request.
type Caller struct {
	ID    string
	Email string
}

// AuthorizationRequest carries every input the evaluator depends on.
type AuthorizationRequest struct {
	Collection string
	// CollectionExists reports whether the store holds the collection.
	CollectionExists bool
	// Method is the HTTP method of the request.
	Method string
	// Caller is nil for anonymous requests.
	Caller    *Caller
	Ownership Ownership
	// OwnerReassigned is set when an update body moves the record to another owner.
	OwnerReassigned bool
}

// Decision is the outcome of an authorization request.
type Decision struct {
	Allowed bool
	Reason  Reason
	Scope   Scope
	Verb    Verb
	Actor   Actor
	// OwnerOnly is set when the grant depends on the owner bits alone.
	OwnerOnly bool
	// OwnerField is the rule's owner field, empty for unmasked collections.
	OwnerField string
}

// Err maps a denied decision to the error reported to the client.
// It returns nil for allowed decisions.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonUnsupportedVerb:
		return ErrUnsupportedVerb
	case ReasonUnknownCollection:
		return ErrUnknownCollection
	case ReasonUnauthenticated:
		return ErrAuthenticationRequired
	default:
		return ErrAccessDenied
	}
}
