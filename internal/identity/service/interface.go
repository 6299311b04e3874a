// Package service provides the password hashing and access token services used
// by the identity use cases.
package service

import (
	"github.com/allisson/restgate/internal/identity/domain"
)

// PasswordService hashes and verifies user passwords.
type PasswordService interface {
	// Hash returns an encoded Argon2id hash of the password.
	Hash(plainPassword string) (string, error)

	// Compare reports whether the password matches the hash.
	Compare(plainPassword string, hashedPassword string) bool
}

// TokenService issues and verifies signed access tokens.
type TokenService interface {
	// Issue signs a token for the user and returns it with its claims.
	Issue(user *domain.User) (string, *domain.Claims, error)

	// Verify checks the signature and expiry of a token and returns its claims.
	// Every failure is reported as domain.ErrInvalidToken.
	Verify(token string) (*domain.Claims, error)
}
