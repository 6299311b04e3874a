package service

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	apperrors "github.com/allisson/restgate/internal/errors"
	"github.com/allisson/restgate/internal/identity/domain"
)

// MinSecretLength is the shortest HMAC secret accepted for signing tokens.
const MinSecretLength = 32

// ErrSecretTooShort is returned when the signing secret is under MinSecretLength bytes.
var ErrSecretTooShort = apperrors.Wrap(apperrors.ErrInvalidInput, "token secret must be at least 32 bytes")

// privateClaims are the non-registered claims carried by an access token.
type privateClaims struct {
	Email string `json:"email"`
}

// tokenService implements TokenService with HS256 signed JWTs.
type tokenService struct {
	signer     jose.Signer
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// Issue signs a token whose subject is the user id.
func (t *tokenService) Issue(user *domain.User) (string, *domain.Claims, error) {
	issuedAt := t.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(t.expiration)

	registered := jwt.Claims{
		Subject:  user.ID,
		IssuedAt: jwt.NewNumericDate(issuedAt),
		Expiry:   jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.Signed(t.signer).
		Claims(registered).
		Claims(privateClaims{Email: user.Email}).
		Serialize()
	if err != nil {
		return "", nil, apperrors.Wrap(err, "failed to sign token")
	}

	return token, &domain.Claims{
		Subject:   user.ID,
		Email:     user.Email,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify parses an HS256 token, checks its signature and expiry and returns its claims.
func (t *tokenService) Verify(token string) (*domain.Claims, error) {
	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, apperrors.Wrap(domain.ErrInvalidToken, "malformed token")
	}

	var registered jwt.Claims
	var private privateClaims
	if err := parsed.Claims(t.secret, &registered, &private); err != nil {
		return nil, apperrors.Wrap(domain.ErrInvalidToken, "bad signature")
	}

	if err := registered.ValidateWithLeeway(jwt.Expected{Time: t.now()}, 0); err != nil {
		return nil, apperrors.Wrap(domain.ErrInvalidToken, err.Error())
	}
	if registered.Subject == "" || registered.Expiry == nil {
		return nil, apperrors.Wrap(domain.ErrInvalidToken, "missing subject or expiry")
	}

	claims := &domain.Claims{
		Subject:   registered.Subject,
		Email:     private.Email,
		ExpiresAt: registered.Expiry.Time().UTC(),
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time().UTC()
	}
	return claims, nil
}

// NewTokenService creates a TokenService signing with secret. Tokens expire after expiration.
func NewTokenService(secret []byte, expiration time.Duration) (TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create signer")
	}

	return &tokenService{
		signer:     signer,
		secret:     secret,
		expiration: expiration,
		now:        time.Now,
	}, nil
}

// GenerateSecret returns a random secret suitable for NewTokenService.
func GenerateSecret() (string, error) {
	randomBytes := make([]byte, MinSecretLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", apperrors.Wrap(err, "failed to generate token secret")
	}
	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}
