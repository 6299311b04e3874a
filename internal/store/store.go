// Package store implements the resource store: named collections of JSON records
// addressed by a string id. Drivers share the Store interface so the gateway can
// run on memory, PostgreSQL, MySQL or Redis.
package store

import (
	"context"
	"maps"
	"strconv"

	"github.com/google/uuid"

	apperrors "github.com/allisson/restgate/internal/errors"
)

// IDField is the record field holding the record id.
const IDField = "id"

// Store errors.
var (
	// ErrCollectionNotFound indicates the collection does not exist.
	ErrCollectionNotFound = apperrors.Wrap(apperrors.ErrNotFound, "collection not found")

	// ErrRecordNotFound indicates no record has the requested id.
	ErrRecordNotFound = apperrors.Wrap(apperrors.ErrNotFound, "record not found")

	// ErrRecordExists indicates a record with the same id is already stored.
	ErrRecordExists = apperrors.Wrap(apperrors.ErrConflict, "record already exists")

	// ErrInvalidRecord indicates a record that cannot be stored.
	ErrInvalidRecord = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid record")
)

// Record is a single JSON object stored in a collection.
type Record map[string]any

// ID returns the record id as a string, or "" when it has none.
func (r Record) ID() string {
	return FormatID(r[IDField])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// FormatID renders an id value the way it appears in a URL path segment.
// JSON numbers decode as float64, so 1 and "1" address the same record.
func FormatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}

// NewID returns a time-ordered UUIDv7 string.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Store is the named-collection record store.
//
// Implementations must be safe for concurrent use. List returns records in
// insertion order. Replace and Patch never change a record's id.
type Store interface {
	// Collections returns every collection name, sorted.
	Collections(ctx context.Context) ([]string, error)
	// HasCollection reports whether the collection exists.
	HasCollection(ctx context.Context, collection string) (bool, error)
	// EnsureCollection creates the collection when it is missing.
	EnsureCollection(ctx context.Context, collection string) error
	// List returns every record in the collection.
	List(ctx context.Context, collection string) ([]Record, error)
	// Get returns a record by id.
	Get(ctx context.Context, collection, id string) (Record, error)
	// Create stores a new record, generating an id when none is set.
	Create(ctx context.Context, collection string, record Record) (Record, error)
	// Replace overwrites an existing record.
	Replace(ctx context.Context, collection, id string, record Record) (Record, error)
	// Patch merges top-level fields into an existing record.
	Patch(ctx context.Context, collection, id string, patch Record) (Record, error)
	// Delete removes a record.
	Delete(ctx context.Context, collection, id string) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// prepareCreate returns a copy of record with a string-addressable id, generating
// one when the record has none.
func prepareCreate(record Record) (Record, string, error) {
	rec := record.Clone()
	if rec == nil {
		rec = Record{}
	}

	raw, present := rec[IDField]
	if !present || raw == nil || raw == "" {
		id := NewID()
		rec[IDField] = id
		return rec, id, nil
	}

	id := FormatID(raw)
	if id == "" {
		return nil, "", apperrors.Wrap(ErrInvalidRecord, "id must be a string or a number")
	}
	return rec, id, nil
}

// prepareReplace returns a copy of record carrying the existing id value.
func prepareReplace(existing, record Record) Record {
	rec := record.Clone()
	if rec == nil {
		rec = Record{}
	}
	rec[IDField] = existing[IDField]
	return rec
}

// applyPatch merges patch into a copy of existing, keeping the existing id.
func applyPatch(existing, patch Record) Record {
	rec := existing.Clone()
	for k, v := range patch {
		if k == IDField {
			continue
		}
		rec[k] = v
	}
	return rec
}
