// Package dto provides data transfer objects for the identity HTTP layer.
package dto

import (
	"encoding/json"

	"github.com/allisson/restgate/internal/identity/domain"
	"github.com/allisson/restgate/internal/identity/usecase"
)

// RegisterRequest is the body of POST /register. Fields other than email and
// password are stored on the user record.
type RegisterRequest struct {
	Email      string
	Password   string
	Attributes map[string]any
}

// UnmarshalJSON keeps every field of the body so extra profile fields survive.
func (r *RegisterRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Email, _ = raw[domain.FieldEmail].(string)
	r.Password, _ = raw[domain.FieldPassword].(string)
	delete(raw, domain.FieldEmail)
	delete(raw, domain.FieldPassword)
	r.Attributes = raw
	return nil
}

// Validate checks the email format and password length.
func (r *RegisterRequest) Validate() error {
	return usecase.ValidateCredentials(r.Email, r.Password)
}

// ToInput converts the request to the use case input.
func (r *RegisterRequest) ToInput() *domain.RegisterInput {
	return &domain.RegisterInput{
		Email:      r.Email,
		Password:   r.Password,
		Attributes: r.Attributes,
	}
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToInput converts the request to the use case input.
func (r *LoginRequest) ToInput() *domain.LoginInput {
	return &domain.LoginInput{
		Email:    r.Email,
		Password: r.Password,
	}
}
