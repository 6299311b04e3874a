// Package usecase implements registration, login and token authentication.
package usecase

import (
	"context"

	"github.com/allisson/restgate/internal/identity/domain"
)

// UserRepository persists registered users.
type UserRepository interface {
	// Create stores a new user, assigning user.ID when it is empty.
	// Returns domain.ErrUserAlreadyExists when the email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID returns domain.ErrUserNotFound when no user has the id.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail returns domain.ErrUserNotFound when no user has the email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// UserUseCase defines the identity operations exposed to the HTTP layer and the CLI.
type UserUseCase interface {
	// Register creates a user and signs an access token for it.
	Register(ctx context.Context, input *domain.RegisterInput) (*domain.AuthResult, error)

	// Login verifies credentials and signs an access token.
	// Unknown emails and wrong passwords both return domain.ErrInvalidCredentials.
	Login(ctx context.Context, input *domain.LoginInput) (*domain.AuthResult, error)

	// Authenticate verifies an access token and returns its claims.
	Authenticate(ctx context.Context, token string) (*domain.Claims, error)
}
