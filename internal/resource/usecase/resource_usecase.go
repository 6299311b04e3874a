package usecase

import (
	"context"
	"slices"
	"strings"

	apperrors "github.com/allisson/restgate/internal/errors"
	"github.com/allisson/restgate/internal/httputil"
	"github.com/allisson/restgate/internal/store"
)

// Option configures a ResourceUseCase.
type Option func(*resourceUseCase)

// WithProtectedFields hides fields of a collection from every response and
// rejects writes, filters and sort keys that name them. Replace keeps their
// stored values.
func WithProtectedFields(collection string, fields ...string) Option {
	return func(r *resourceUseCase) {
		r.protected[collection] = append(r.protected[collection], fields...)
	}
}

// resourceUseCase implements ResourceUseCase on a store.
type resourceUseCase struct {
	store     store.Store
	protected map[string][]string
}

// NewResourceUseCase creates a ResourceUseCase backed by s.
func NewResourceUseCase(s store.Store, opts ...Option) ResourceUseCase {
	r := &resourceUseCase{store: s, protected: map[string][]string{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns the records matching opts.
func (r *resourceUseCase) List(ctx context.Context, collection string, opts ListOptions) (*ListResult, error) {
	if err := r.checkQueryable(collection, opts.Query); err != nil {
		return nil, err
	}

	records, err := r.store.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	if opts.OwnerField != "" {
		records = FilterOwned(records, opts.OwnerField, opts.OwnerID)
	}

	page, total, err := ApplyQuery(records, opts.Query)
	if err != nil {
		return nil, err
	}

	out := make([]store.Record, len(page))
	for i, rec := range page {
		out[i] = r.redact(collection, rec)
	}
	return &ListResult{Records: out, Total: total}, nil
}

// Get returns a record by id.
func (r *resourceUseCase) Get(ctx context.Context, collection, id string) (store.Record, error) {
	rec, err := r.store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	return r.redact(collection, rec), nil
}

// Create stores a new record.
func (r *resourceUseCase) Create(ctx context.Context, collection string, record store.Record) (store.Record, error) {
	if err := r.checkWritable(collection, record); err != nil {
		return nil, err
	}
	rec, err := r.store.Create(ctx, collection, record)
	if err != nil {
		return nil, err
	}
	return r.redact(collection, rec), nil
}

// Replace overwrites a record, keeping its protected fields.
func (r *resourceUseCase) Replace(
	ctx context.Context,
	collection, id string,
	record store.Record,
) (store.Record, error) {
	if err := r.checkWritable(collection, record); err != nil {
		return nil, err
	}

	if fields := r.protected[collection]; len(fields) > 0 {
		existing, err := r.store.Get(ctx, collection, id)
		if err != nil {
			return nil, err
		}
		record = record.Clone()
		for _, field := range fields {
			if v, ok := existing[field]; ok {
				record[field] = v
			}
		}
	}

	rec, err := r.store.Replace(ctx, collection, id, record)
	if err != nil {
		return nil, err
	}
	return r.redact(collection, rec), nil
}

// Patch merges fields into a record.
func (r *resourceUseCase) Patch(ctx context.Context, collection, id string, patch store.Record) (store.Record, error) {
	if err := r.checkWritable(collection, patch); err != nil {
		return nil, err
	}
	rec, err := r.store.Patch(ctx, collection, id, patch)
	if err != nil {
		return nil, err
	}
	return r.redact(collection, rec), nil
}

// Delete removes a record.
func (r *resourceUseCase) Delete(ctx context.Context, collection, id string) error {
	return r.store.Delete(ctx, collection, id)
}

func (r *resourceUseCase) checkWritable(collection string, record store.Record) error {
	for _, field := range r.protected[collection] {
		if _, ok := record[field]; ok {
			return apperrors.Wrapf(apperrors.ErrInvalidInput, "field %q cannot be written", field)
		}
	}
	return nil
}

func (r *resourceUseCase) checkQueryable(collection string, q httputil.ListQuery) error {
	for _, field := range r.protected[collection] {
		filtered := slices.ContainsFunc(q.Filters, func(f httputil.Filter) bool {
			return namesField(f.Field, field)
		})
		sorted := slices.ContainsFunc(q.Sort, func(key string) bool {
			return namesField(key, field)
		})
		if filtered || sorted {
			return apperrors.Wrapf(apperrors.ErrInvalidInput, "field %q cannot be queried", field)
		}
	}
	return nil
}

// namesField reports whether a dotted path is field or lies beneath it.
func namesField(path, field string) bool {
	return path == field || strings.HasPrefix(path, field+".")
}

func (r *resourceUseCase) redact(collection string, rec store.Record) store.Record {
	fields := r.protected[collection]
	if len(fields) == 0 {
		return rec
	}
	out := rec.Clone()
	for _, field := range fields {
		delete(out, field)
	}
	return out
}
