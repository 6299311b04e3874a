// Package domain defines the collection access model: permission masks, per-collection
// rules and the decisions produced when a caller requests an operation on a collection.
package domain

import "net/http"

// Capability is a single permission bit held by an actor class.
type Capability string

const (
	// ReadCapability allows listing and reading records.
	ReadCapability Capability = "read"

	// WriteCapability allows creating, replacing and patching records.
	WriteCapability Capability = "write"

	// DeleteCapability allows removing records.
	DeleteCapability Capability = "delete"
)

// Verb is the collection operation requested by an HTTP method.
type Verb string

const (
	VerbCreate Verb = "create"
	VerbRead   Verb = "read"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// VerbFromMethod maps an HTTP method to a Verb. HEAD is treated as a read.
// The second return value is false for methods with no collection operation.
func VerbFromMethod(method string) (Verb, bool) {
	switch method {
	case http.MethodPost:
		return VerbCreate, true
	case http.MethodGet, http.MethodHead:
		return VerbRead, true
	case http.MethodPut, http.MethodPatch:
		return VerbUpdate, true
	case http.MethodDelete:
		return VerbDelete, true
	default:
		return "", false
	}
}

// Capability returns the permission bit required to perform the verb.
func (v Verb) Capability() Capability {
	switch v {
	case VerbRead:
		return ReadCapability
	case VerbCreate, VerbUpdate:
		return WriteCapability
	case VerbDelete:
		return DeleteCapability
	default:
		return ""
	}
}

// Actor is the class a caller falls into relative to a record.
type Actor int

const (
	ActorAnonymous Actor = iota
	ActorAuthenticated
	ActorOwner
)

func (a Actor) String() string {
	switch a {
	case ActorOwner:
		return "owner"
	case ActorAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Ownership describes how the target record relates to the caller.
type Ownership int

const (
	// OwnershipUndetermined is used for collection-level requests such as listing.
	OwnershipUndetermined Ownership = iota
	// OwnershipNone means the record carries no owner field.
	OwnershipNone
	// OwnershipOwned means the owner field equals the caller id.
	OwnershipOwned
	// OwnershipNotOwned means the owner field names someone else.
	OwnershipNotOwned
)

func (o Ownership) String() string {
	switch o {
	case OwnershipNone:
		return "none"
	case OwnershipOwned:
		return "owned"
	case OwnershipNotOwned:
		return "not_owned"
	default:
		return "undetermined"
	}
}

// UnmaskedPolicy decides requests against collections that have no rule.
type UnmaskedPolicy string

const (
	UnmaskedDeny  UnmaskedPolicy = "deny"
	UnmaskedAllow UnmaskedPolicy = "allow"
)
