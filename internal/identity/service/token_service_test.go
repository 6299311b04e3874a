package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/restgate/internal/errors"
	"github.com/allisson/restgate/internal/identity/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokenService(t *testing.T, now time.Time) *tokenService {
	t.Helper()
	svc, err := NewTokenService([]byte(testSecret), time.Hour)
	require.NoError(t, err)
	ts := svc.(*tokenService)
	ts.now = func() time.Time { return now }
	return ts
}

func TestNewTokenService(t *testing.T) {
	t.Run("Error_ShortSecret", func(t *testing.T) {
		svc, err := NewTokenService([]byte("short"), time.Hour)
		assert.Nil(t, svc)
		assert.ErrorIs(t, err, ErrSecretTooShort)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("Success_GeneratedSecret", func(t *testing.T) {
		secret, err := GenerateSecret()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(secret), MinSecretLength)

		_, err = NewTokenService([]byte(secret), time.Hour)
		assert.NoError(t, err)
	})
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, now)
	user := &domain.User{ID: "u1", Email: "ada@example.com"}

	token, claims, err := svc.Issue(user)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, now, claims.IssuedAt)
	assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt)

	verified, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, claims, verified)
}

func TestTokenService_Verify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &domain.User{ID: "u1", Email: "ada@example.com"}

	t.Run("Error_Expired", func(t *testing.T) {
		svc := newTestTokenService(t, now)
		token, _, err := svc.Issue(user)
		require.NoError(t, err)

		svc.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("Error_OtherSecret", func(t *testing.T) {
		svc := newTestTokenService(t, now)
		token, _, err := svc.Issue(user)
		require.NoError(t, err)

		other, err := NewTokenService([]byte(strings.Repeat("x", 32)), time.Hour)
		require.NoError(t, err)
		other.(*tokenService).now = func() time.Time { return now }

		_, err = other.Verify(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("Error_Tampered", func(t *testing.T) {
		svc := newTestTokenService(t, now)
		token, _, err := svc.Issue(user)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		forged := &domain.User{ID: "admin", Email: "admin@example.com"}
		forgedToken, _, err := svc.Issue(forged)
		require.NoError(t, err)
		parts[1] = strings.Split(forgedToken, ".")[1]

		_, err = svc.Verify(strings.Join(parts, "."))
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("Error_Malformed", func(t *testing.T) {
		svc := newTestTokenService(t, now)

		_, err := svc.Verify("not-a-token")
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
		assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
	})
}
