package domain

import (
	"github.com/allisson/restgate/internal/errors"
)

// Access model errors.
var (
	// ErrInvalidMask indicates a mask that is not three digits between 0 and 7.
	ErrInvalidMask = errors.Wrap(errors.ErrInvalidInput, "invalid access mask")

	// ErrInvalidRule indicates a malformed collection=mask rule entry.
	ErrInvalidRule = errors.Wrap(errors.ErrInvalidInput, "invalid access rule")

	// ErrAccessDenied is returned when a decision denies an authenticated caller.
	ErrAccessDenied = errors.Wrap(errors.ErrForbidden, "access denied")

	// ErrAuthenticationRequired is returned when an anonymous caller is denied.
	ErrAuthenticationRequired = errors.Wrap(errors.ErrUnauthorized, "authentication required")

	// ErrUnsupportedVerb is returned for methods that map to no collection operation.
	ErrUnsupportedVerb = errors.Wrap(errors.ErrMethodNotAllowed, "unsupported verb")

	// ErrUnknownCollection is returned for collections the store does not hold.
	ErrUnknownCollection = errors.Wrap(errors.ErrNotFound, "collection not found")
)
