package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every driver must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("Collections", func(t *testing.T) {
		s := newStore(t)

		ok, err := s.HasCollection(ctx, "orders")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.EnsureCollection(ctx, "orders"))
		require.NoError(t, s.EnsureCollection(ctx, "orders"))
		require.NoError(t, s.EnsureCollection(ctx, "products"))

		ok, err = s.HasCollection(ctx, "orders")
		require.NoError(t, err)
		assert.True(t, ok)

		names, err := s.Collections(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"orders", "products"}, names)

		records, err := s.List(ctx, "orders")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("MissingCollection", func(t *testing.T) {
		s := newStore(t)

		_, err := s.List(ctx, "ghosts")
		assert.ErrorIs(t, err, ErrCollectionNotFound)

		_, err = s.Get(ctx, "ghosts", "1")
		assert.ErrorIs(t, err, ErrCollectionNotFound)

		_, err = s.Create(ctx, "ghosts", Record{"name": "boo"})
		assert.ErrorIs(t, err, ErrCollectionNotFound)

		_, err = s.Patch(ctx, "ghosts", "1", Record{"name": "boo"})
		assert.ErrorIs(t, err, ErrCollectionNotFound)

		err = s.Delete(ctx, "ghosts", "1")
		assert.ErrorIs(t, err, ErrCollectionNotFound)
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx, "orders"))

		generated, err := s.Create(ctx, "orders", Record{"status": "new"})
		require.NoError(t, err)
		id := generated.ID()
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())

		numeric, err := s.Create(ctx, "orders", Record{"id": float64(42), "status": "paid"})
		require.NoError(t, err)
		assert.Equal(t, "42", numeric.ID())

		got, err := s.Get(ctx, "orders", "42")
		require.NoError(t, err)
		assert.Equal(t, "paid", got["status"])

		_, err = s.Create(ctx, "orders", Record{"id": "42"})
		assert.ErrorIs(t, err, ErrRecordExists)

		_, err = s.Get(ctx, "orders", "nope")
		assert.ErrorIs(t, err, ErrRecordNotFound)

		_, err = s.Create(ctx, "orders", Record{"id": true})
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("ListPreservesInsertionOrder", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx, "orders"))

		for _, id := range []string{"c", "a", "b"} {
			_, err := s.Create(ctx, "orders", Record{"id": id})
			require.NoError(t, err)
		}

		records, err := s.List(ctx, "orders")
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "c", records[0].ID())
		assert.Equal(t, "a", records[1].ID())
		assert.Equal(t, "b", records[2].ID())
	})

	t.Run("ReplaceKeepsID", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx, "orders"))
		_, err := s.Create(ctx, "orders", Record{"id": "1", "status": "new", "total": float64(10)})
		require.NoError(t, err)

		replaced, err := s.Replace(ctx, "orders", "1", Record{"id": "999", "status": "paid"})
		require.NoError(t, err)
		assert.Equal(t, Record{"id": "1", "status": "paid"}, replaced)

		got, err := s.Get(ctx, "orders", "1")
		require.NoError(t, err)
		assert.Equal(t, Record{"id": "1", "status": "paid"}, got)

		_, err = s.Replace(ctx, "orders", "2", Record{"status": "paid"})
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("PatchMerges", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx, "orders"))
		_, err := s.Create(ctx, "orders", Record{"id": "1", "status": "new", "total": float64(10)})
		require.NoError(t, err)

		patched, err := s.Patch(ctx, "orders", "1", Record{"id": "2", "status": "paid"})
		require.NoError(t, err)
		assert.Equal(t, Record{"id": "1", "status": "paid", "total": float64(10)}, patched)

		_, err = s.Patch(ctx, "orders", "2", Record{"status": "paid"})
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx, "orders"))
		_, err := s.Create(ctx, "orders", Record{"id": "1"})
		require.NoError(t, err)
		_, err = s.Create(ctx, "orders", Record{"id": "2"})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "orders", "1"))
		assert.ErrorIs(t, s.Delete(ctx, "orders", "1"), ErrRecordNotFound)

		records, err := s.List(ctx, "orders")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "2", records[0].ID())
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
