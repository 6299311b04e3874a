package store

import (
	"context"
	"time"

	"github.com/allisson/restgate/internal/metrics"
)

const metricsDomain = "store"

// storeWithMetrics decorates Store with business metrics instrumentation.
type storeWithMetrics struct {
	next    Store
	metrics metrics.BusinessMetrics
}

// NewStoreWithMetrics wraps a Store with metrics recording.
func NewStoreWithMetrics(s Store, m metrics.BusinessMetrics) Store {
	return &storeWithMetrics{
		next:    s,
		metrics: m,
	}
}

func (s *storeWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	s.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Collections records metrics for collection listing.
func (s *storeWithMetrics) Collections(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := s.next.Collections(ctx)
	s.record(ctx, "collections", start, err)
	return names, err
}

// HasCollection records metrics for collection lookups.
func (s *storeWithMetrics) HasCollection(ctx context.Context, collection string) (bool, error) {
	start := time.Now()
	ok, err := s.next.HasCollection(ctx, collection)
	s.record(ctx, "collection_exists", start, err)
	return ok, err
}

// EnsureCollection records metrics for collection creation.
func (s *storeWithMetrics) EnsureCollection(ctx context.Context, collection string) error {
	start := time.Now()
	err := s.next.EnsureCollection(ctx, collection)
	s.record(ctx, "collection_ensure", start, err)
	return err
}

// List records metrics for record listing.
func (s *storeWithMetrics) List(ctx context.Context, collection string) ([]Record, error) {
	start := time.Now()
	records, err := s.next.List(ctx, collection)
	s.record(ctx, "record_list", start, err)
	return records, err
}

// Get records metrics for record retrieval.
func (s *storeWithMetrics) Get(ctx context.Context, collection, id string) (Record, error) {
	start := time.Now()
	rec, err := s.next.Get(ctx, collection, id)
	s.record(ctx, "record_get", start, err)
	return rec, err
}

// Create records metrics for record creation.
func (s *storeWithMetrics) Create(ctx context.Context, collection string, record Record) (Record, error) {
	start := time.Now()
	rec, err := s.next.Create(ctx, collection, record)
	s.record(ctx, "record_create", start, err)
	return rec, err
}

// Replace records metrics for record replacement.
func (s *storeWithMetrics) Replace(ctx context.Context, collection, id string, record Record) (Record, error) {
	start := time.Now()
	rec, err := s.next.Replace(ctx, collection, id, record)
	s.record(ctx, "record_replace", start, err)
	return rec, err
}

// Patch records metrics for record patching.
func (s *storeWithMetrics) Patch(ctx context.Context, collection, id string, patch Record) (Record, error) {
	start := time.Now()
	rec, err := s.next.Patch(ctx, collection, id, patch)
	s.record(ctx, "record_patch", start, err)
	return rec, err
}

// Delete records metrics for record deletion.
func (s *storeWithMetrics) Delete(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := s.next.Delete(ctx, collection, id)
	s.record(ctx, "record_delete", start, err)
	return err
}

// Ping is not instrumented.
func (s *storeWithMetrics) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped store.
func (s *storeWithMetrics) Close() error {
	return s.next.Close()
}
