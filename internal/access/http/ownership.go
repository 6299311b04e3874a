package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	accessDomain "github.com/allisson/restgate/internal/access/domain"
	apperrors "github.com/allisson/restgate/internal/errors"
	"github.com/allisson/restgate/internal/store"
)

// maxOwnershipBody bounds how much of a request body is buffered to read the owner field.
const maxOwnershipBody = 1 << 20

// ownershipTarget describes the record a request addresses.
type ownershipTarget struct {
	Method     string
	Collection string
	ID         string
	OwnerField string
	Caller     *accessDomain.Caller
}

// ownershipResult is what resolveOwnership learned about the request.
type ownershipResult struct {
	Ownership       accessDomain.Ownership
	OwnerReassigned bool
}

// ownerOf classifies the owner field of a record or body against the caller.
func ownerOf(fields map[string]any, ownerField string, caller *accessDomain.Caller) accessDomain.Ownership {
	raw, ok := fields[ownerField]
	if !ok || raw == nil {
		return accessDomain.OwnershipNone
	}
	if store.FormatID(raw) == caller.ID {
		return accessDomain.OwnershipOwned
	}
	return accessDomain.OwnershipNotOwned
}

// readBody buffers the JSON object body of r and restores it for the handler.
// A body that is not a JSON object yields nil fields.
func readBody(r *http.Request) (map[string]any, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxOwnershipBody+1))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read request body")
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))

	if len(data) > maxOwnershipBody {
		return nil, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil
	}
	return fields, nil
}

// resolveOwnership determines how the addressed record relates to the caller.
//
// Collection reads are undetermined. Item routes compare the stored record's
// owner field. Creates compare the owner field of the body. Updates of an owned
// record report a reassignment when the body names a different owner, or when
// a PUT drops the owner field.
func resolveOwnership(
	ctx context.Context,
	s store.Store,
	r *http.Request,
	target ownershipTarget,
) (ownershipResult, error) {
	if target.Caller == nil {
		return ownershipResult{Ownership: accessDomain.OwnershipNone}, nil
	}

	if target.ID == "" {
		if target.Method != http.MethodPost {
			return ownershipResult{Ownership: accessDomain.OwnershipUndetermined}, nil
		}
		body, err := readBody(r)
		if err != nil {
			return ownershipResult{}, err
		}
		return ownershipResult{Ownership: ownerOf(body, target.OwnerField, target.Caller)}, nil
	}

	rec, err := s.Get(ctx, target.Collection, target.ID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return ownershipResult{Ownership: accessDomain.OwnershipNone}, nil
		}
		return ownershipResult{}, err
	}

	result := ownershipResult{Ownership: ownerOf(rec, target.OwnerField, target.Caller)}
	if result.Ownership != accessDomain.OwnershipOwned {
		return result, nil
	}

	switch target.Method {
	case http.MethodPut, http.MethodPatch:
		body, err := readBody(r)
		if err != nil {
			return ownershipResult{}, err
		}
		_, present := body[target.OwnerField]
		switch {
		case present:
			result.OwnerReassigned = ownerOf(body, target.OwnerField, target.Caller) != accessDomain.OwnershipOwned
		case target.Method == http.MethodPut && target.OwnerField != store.IDField:
			result.OwnerReassigned = true
		}
	}
	return result, nil
}
