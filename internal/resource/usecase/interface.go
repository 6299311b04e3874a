// Package usecase implements the collection operations behind the gateway's
// CRUD routes, including json-server style listing queries.
package usecase

import (
	"context"

	"github.com/allisson/restgate/internal/httputil"
	"github.com/allisson/restgate/internal/store"
)

// ListOptions controls a collection listing.
type ListOptions struct {
	Query httputil.ListQuery
	// OwnerField and OwnerID restrict the listing to records owned by OwnerID
	// when OwnerField is set.
	OwnerField string
	OwnerID    string
}

// ListResult is one page of a listing.
type ListResult struct {
	Records []store.Record
	// Total counts every record that matched, before paging.
	Total int
}

// ResourceUseCase defines the collection operations.
type ResourceUseCase interface {
	List(ctx context.Context, collection string, opts ListOptions) (*ListResult, error)
	Get(ctx context.Context, collection, id string) (store.Record, error)
	Create(ctx context.Context, collection string, record store.Record) (store.Record, error)
	Replace(ctx context.Context, collection, id string, record store.Record) (store.Record, error)
	Patch(ctx context.Context, collection, id string, patch store.Record) (store.Record, error)
	Delete(ctx context.Context, collection, id string) error
}
