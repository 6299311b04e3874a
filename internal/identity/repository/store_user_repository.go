// Package repository persists users as records of the users collection, so the
// gateway's access rules apply to them like any other resource.
package repository

import (
	"context"
	"sync"

	apperrors "github.com/allisson/restgate/internal/errors"
	"github.com/allisson/restgate/internal/identity/domain"
	"github.com/allisson/restgate/internal/store"
)

// StoreUserRepository implements user persistence on top of the resource store.
type StoreUserRepository struct {
	store      store.Store
	collection string
	// createMu serialises the email uniqueness check with the insert.
	createMu sync.Mutex
}

// NewStoreUserRepository creates a repository for users kept in collection.
func NewStoreUserRepository(s store.Store, collection string) *StoreUserRepository {
	return &StoreUserRepository{store: s, collection: collection}
}

// Create stores a new user. The email must not be registered yet.
// An empty user ID is replaced by the id the store generates.
func (r *StoreUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.createMu.Lock()
	defer r.createMu.Unlock()

	if err := r.store.EnsureCollection(ctx, r.collection); err != nil {
		return err
	}

	_, err := r.GetByEmail(ctx, user.Email)
	switch {
	case err == nil:
		return domain.ErrUserAlreadyExists
	case !apperrors.Is(err, domain.ErrUserNotFound):
		return err
	}

	created, err := r.store.Create(ctx, r.collection, toRecord(user))
	if err != nil {
		if apperrors.Is(err, store.ErrRecordExists) {
			return domain.ErrUserAlreadyExists
		}
		return err
	}

	user.ID = created.ID()
	return nil
}

// GetByID returns the user with the given id.
func (r *StoreUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	rec, err := r.store.Get(ctx, r.collection, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return fromRecord(rec)
}

// GetByEmail returns the user registered with email, compared case-insensitively.
func (r *StoreUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	records, err := r.store.List(ctx, r.collection)
	if err != nil {
		if apperrors.Is(err, store.ErrCollectionNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	want := domain.NormalizeEmail(email)
	for _, rec := range records {
		stored, ok := rec[domain.FieldEmail].(string)
		if !ok || domain.NormalizeEmail(stored) != want {
			continue
		}
		return fromRecord(rec)
	}
	return nil, domain.ErrUserNotFound
}

func toRecord(user *domain.User) store.Record {
	rec := make(store.Record, len(user.Attributes)+3)
	for k, v := range user.Attributes {
		rec[k] = v
	}
	if user.ID != "" {
		rec[domain.FieldID] = user.ID
	} else {
		delete(rec, domain.FieldID)
	}
	rec[domain.FieldEmail] = user.Email
	rec[domain.FieldPassword] = user.PasswordHash
	return rec
}

func fromRecord(rec store.Record) (*domain.User, error) {
	email, _ := rec[domain.FieldEmail].(string)
	hash, _ := rec[domain.FieldPassword].(string)
	if rec.ID() == "" || email == "" {
		return nil, apperrors.Wrap(domain.ErrInvalidUserRecord, "missing id or email")
	}

	attributes := make(map[string]any, len(rec))
	for k, v := range rec {
		switch k {
		case domain.FieldID, domain.FieldEmail, domain.FieldPassword:
			continue
		}
		attributes[k] = v
	}

	return &domain.User{
		ID:           rec.ID(),
		Email:        email,
		PasswordHash: hash,
		Attributes:   attributes,
	}, nil
}
