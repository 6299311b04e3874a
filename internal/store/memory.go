package store

import (
	"context"
	"slices"
	"sync"

	apperrors "github.com/allisson/restgate/internal/errors"
)

type memoryCollection struct {
	order   []string
	records map[string]Record
}

func newMemoryCollection() *memoryCollection {
	return &memoryCollection{records: make(map[string]Record)}
}

func (c *memoryCollection) clone() *memoryCollection {
	out := &memoryCollection{
		order:   slices.Clone(c.order),
		records: make(map[string]Record, len(c.records)),
	}
	for id, rec := range c.records {
		out.records[id] = rec
	}
	return out
}

func (c *memoryCollection) list() []Record {
	out := make([]Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.records[id].Clone())
	}
	return out
}

// MemoryStore keeps collections in process memory, optionally persisting a
// snapshot after every mutation.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	snapshot    Snapshotter
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithSnapshotter persists the store through s. The snapshot is loaded when the
// store is created and rewritten after each successful mutation.
func WithSnapshotter(s Snapshotter) MemoryOption {
	return func(m *MemoryStore) {
		m.snapshot = s
	}
}

// NewMemoryStore creates a memory store, restoring the snapshot when one exists.
func NewMemoryStore(ctx context.Context, opts ...MemoryOption) (*MemoryStore, error) {
	m := &MemoryStore{collections: make(map[string]*memoryCollection)}
	for _, opt := range opts {
		opt(m)
	}

	if m.snapshot == nil {
		return m, nil
	}

	doc, err := m.snapshot.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range doc.Collections() {
		coll := newMemoryCollection()
		for _, record := range doc[name] {
			rec, id, err := prepareCreate(record)
			if err != nil {
				return nil, apperrors.Wrapf(err, "snapshot collection %q", name)
			}
			if _, exists := coll.records[id]; exists {
				continue
			}
			coll.order = append(coll.order, id)
			coll.records[id] = rec
		}
		m.collections[name] = coll
	}

	return m, nil
}

// Collections returns every collection name, sorted.
func (m *MemoryStore) Collections(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// HasCollection reports whether the collection exists.
func (m *MemoryStore) HasCollection(_ context.Context, collection string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.collections[collection]
	return ok, nil
}

// EnsureCollection creates the collection when it is missing.
func (m *MemoryStore) EnsureCollection(ctx context.Context, collection string) error {
	return m.mutate(ctx, collection, true, func(*memoryCollection) error { return nil })
}

// List returns the collection's records in insertion order.
func (m *MemoryStore) List(_ context.Context, collection string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	return coll.list(), nil
}

// Get returns a record by id.
func (m *MemoryStore) Get(_ context.Context, collection, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	rec, ok := coll.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// Create stores a new record.
func (m *MemoryStore) Create(ctx context.Context, collection string, record Record) (Record, error) {
	rec, id, err := prepareCreate(record)
	if err != nil {
		return nil, err
	}

	err = m.mutate(ctx, collection, false, func(coll *memoryCollection) error {
		if _, exists := coll.records[id]; exists {
			return ErrRecordExists
		}
		coll.order = append(coll.order, id)
		coll.records[id] = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Replace overwrites an existing record, keeping its id.
func (m *MemoryStore) Replace(ctx context.Context, collection, id string, record Record) (Record, error) {
	var out Record
	err := m.mutate(ctx, collection, false, func(coll *memoryCollection) error {
		existing, ok := coll.records[id]
		if !ok {
			return ErrRecordNotFound
		}
		out = prepareReplace(existing, record)
		coll.records[id] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

// Patch merges fields into an existing record.
func (m *MemoryStore) Patch(ctx context.Context, collection, id string, patch Record) (Record, error) {
	var out Record
	err := m.mutate(ctx, collection, false, func(coll *memoryCollection) error {
		existing, ok := coll.records[id]
		if !ok {
			return ErrRecordNotFound
		}
		out = applyPatch(existing, patch)
		coll.records[id] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

// Delete removes a record.
func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	return m.mutate(ctx, collection, false, func(coll *memoryCollection) error {
		if _, ok := coll.records[id]; !ok {
			return ErrRecordNotFound
		}
		delete(coll.records, id)
		coll.order = slices.DeleteFunc(coll.order, func(v string) bool { return v == id })
		return nil
	})
}

// Ping always succeeds.
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close closes the snapshotter, if any.
func (m *MemoryStore) Close() error {
	if m.snapshot == nil {
		return nil
	}
	return m.snapshot.Close()
}

// mutate applies fn to a copy of the collection and swaps it in once the
// snapshot, if configured, has been written.
func (m *MemoryStore) mutate(
	ctx context.Context,
	collection string,
	create bool,
	fn func(*memoryCollection) error,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.collections[collection]
	if !ok {
		if !create {
			return ErrCollectionNotFound
		}
		current = newMemoryCollection()
	} else if create {
		return nil
	}

	next := current.clone()
	if err := fn(next); err != nil {
		return err
	}

	if m.snapshot != nil {
		if err := m.snapshot.Save(ctx, m.documentWith(collection, next)); err != nil {
			return err
		}
	}

	m.collections[collection] = next
	return nil
}

func (m *MemoryStore) documentWith(collection string, replacement *memoryCollection) Document {
	doc := make(Document, len(m.collections)+1)
	for name, coll := range m.collections {
		doc[name] = coll.list()
	}
	doc[collection] = replacement.list()
	return doc
}
