package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/restgate/internal/errors"
	"github.com/allisson/restgate/internal/httputil"
	"github.com/allisson/restgate/internal/store"
)

func newTestUseCase(t *testing.T) (ResourceUseCase, store.Store) {
	t.Helper()
	ctx := context.Background()
	s, err := store.NewMemoryStore(ctx)
	require.NoError(t, err)

	_, err = store.Seed(ctx, s, store.Document{
		"orders": {
			{"id": "1", "userId": "u1", "total": 10.0},
			{"id": "2", "userId": "u2", "total": 20.0},
			{"id": "3", "userId": "u1", "total": 30.0},
		},
		"users": {
			{"id": "u1", "email": "ada@example.com", "password": "$argon2id$hash"},
		},
	})
	require.NoError(t, err)

	return NewResourceUseCase(s, WithProtectedFields("users", "password")), s
}

func TestResourceUseCase_List(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)

	t.Run("Success_OwnedScope", func(t *testing.T) {
		result, err := uc.List(ctx, "orders", ListOptions{
			Query:      httputil.ListQuery{Start: -1, End: -1, Limit: 1},
			OwnerField: "userId",
			OwnerID:    "u1",
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		assert.Equal(t, []string{"1"}, ids(result.Records))
	})

	t.Run("Success_ProtectedFieldsHidden", func(t *testing.T) {
		result, err := uc.List(ctx, "users", ListOptions{Query: httputil.ListQuery{Start: -1, End: -1}})
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.NotContains(t, result.Records[0], "password")
	})

	t.Run("Error_ProtectedFieldNotQueryable", func(t *testing.T) {
		queries := map[string]httputil.ListQuery{
			"like": {Start: -1, End: -1, Filters: []httputil.Filter{
				{Field: "password", Operator: httputil.FilterLike, Values: []string{`^\$argon2id`}},
			}},
			"gte": {Start: -1, End: -1, Filters: []httputil.Filter{
				{Field: "password", Operator: httputil.FilterGte, Values: []string{"$"}},
			}},
			"eq": {Start: -1, End: -1, Filters: []httputil.Filter{
				{Field: "password", Operator: httputil.FilterEq, Values: []string{"$argon2id$hash"}},
			}},
			"nested": {Start: -1, End: -1, Filters: []httputil.Filter{
				{Field: "password.salt", Operator: httputil.FilterNe, Values: []string{"x"}},
			}},
			"sort": {Start: -1, End: -1, Sort: []string{"email", "password"}},
		}
		for name, q := range queries {
			result, err := uc.List(ctx, "users", ListOptions{Query: q})
			assert.Nil(t, result, name)
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput), name)
		}
	})

	t.Run("Success_UnprotectedFieldsQueryable", func(t *testing.T) {
		result, err := uc.List(ctx, "users", ListOptions{Query: httputil.ListQuery{
			Start:   -1,
			End:     -1,
			Filters: []httputil.Filter{{Field: "passwordHint", Operator: httputil.FilterNe, Values: []string{"x"}}},
			Sort:    []string{"email"},
		}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Total)

		result, err = uc.List(ctx, "orders", ListOptions{Query: httputil.ListQuery{
			Start:   -1,
			End:     -1,
			Filters: []httputil.Filter{{Field: "password", Operator: httputil.FilterNe, Values: []string{"x"}}},
		}})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Total)
	})

	t.Run("Error_UnknownCollection", func(t *testing.T) {
		_, err := uc.List(ctx, "ghosts", ListOptions{})
		assert.ErrorIs(t, err, store.ErrCollectionNotFound)
	})
}

func TestResourceUseCase_ProtectedFields(t *testing.T) {
	ctx := context.Background()
	uc, s := newTestUseCase(t)

	t.Run("Success_GetHidesPassword", func(t *testing.T) {
		rec, err := uc.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", rec["email"])
		assert.NotContains(t, rec, "password")
	})

	t.Run("Error_WritePassword", func(t *testing.T) {
		_, err := uc.Patch(ctx, "users", "u1", store.Record{"password": "plain"})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

		_, err = uc.Create(ctx, "users", store.Record{"email": "x@example.com", "password": "plain"})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("Success_ReplaceKeepsPassword", func(t *testing.T) {
		rec, err := uc.Replace(ctx, "users", "u1", store.Record{"email": "ada@example.com", "name": "Ada"})
		require.NoError(t, err)
		assert.NotContains(t, rec, "password")

		stored, err := s.Get(ctx, "users", "u1")
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$hash", stored["password"])
		assert.Equal(t, "Ada", stored["name"])
	})
}

func TestResourceUseCase_CRUD(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)

	created, err := uc.Create(ctx, "orders", store.Record{"userId": "u1", "total": 5.0})
	require.NoError(t, err)
	id := created.ID()
	require.NotEmpty(t, id)

	patched, err := uc.Patch(ctx, "orders", id, store.Record{"total": 6.0, "id": "hijack"})
	require.NoError(t, err)
	assert.Equal(t, id, patched.ID())
	assert.Equal(t, 6.0, patched["total"])

	replaced, err := uc.Replace(ctx, "orders", id, store.Record{"userId": "u1"})
	require.NoError(t, err)
	assert.NotContains(t, replaced, "total")

	require.NoError(t, uc.Delete(ctx, "orders", id))
	_, err = uc.Get(ctx, "orders", id)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}
