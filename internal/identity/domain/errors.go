package domain

import (
	apperrors "github.com/allisson/restgate/internal/errors"
)

// Identity errors.
var (
	// ErrUserNotFound indicates no user matches the lookup.
	ErrUserNotFound = apperrors.Wrap(apperrors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates the email is already registered.
	ErrUserAlreadyExists = apperrors.Wrap(apperrors.ErrConflict, "email already exists")

	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = apperrors.Wrap(apperrors.ErrUnauthorized, "invalid credentials")

	// ErrInvalidToken indicates a malformed, forged or expired access token.
	ErrInvalidToken = apperrors.Wrap(apperrors.ErrUnauthorized, "invalid token")

	// ErrInvalidUserRecord indicates a users collection record that cannot be read as a user.
	ErrInvalidUserRecord = apperrors.New("invalid user record")
)
