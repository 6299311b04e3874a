// Package domain defines the identity entities: registered users, token claims
// and the results of registration and login.
package domain

import (
	"maps"
	"strings"
	"time"
)

// Reserved user fields. Every other registration field is kept as an attribute.
const (
	FieldID       = "id"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// User is a registered account stored in the users collection.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	// Attributes holds the extra fields supplied at registration.
	Attributes map[string]any
}

// Public returns the user as a JSON object without the password hash.
func (u *User) Public() map[string]any {
	out := make(map[string]any, len(u.Attributes)+2)
	maps.Copy(out, u.Attributes)
	out[FieldID] = u.ID
	out[FieldEmail] = u.Email
	return out
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Claims are the verified contents of an access token.
type Claims struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RegisterInput contains the parameters for registering a user.
type RegisterInput struct {
	Email      string
	Password   string
	Attributes map[string]any
}

// LoginInput contains the credentials presented at login.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *User
}
