package dto

import (
	"github.com/allisson/restgate/internal/identity/domain"
)

// AuthResponse is returned by registration and login. The user never carries
// the password hash.
type AuthResponse struct {
	AccessToken string         `json:"accessToken"`
	User        map[string]any `json:"user"`
}

// MapAuthResultToResponse converts a use case result to the response body.
func MapAuthResultToResponse(result *domain.AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken: result.AccessToken,
		User:        result.User.Public(),
	}
}
