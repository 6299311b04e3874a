package usecase

import (
	"context"
	"errors"
	"maps"

	validation "github.com/jellydator/validation"

	"github.com/allisson/restgate/internal/identity/domain"
	identityService "github.com/allisson/restgate/internal/identity/service"
	"github.com/allisson/restgate/internal/store"
	appValidation "github.com/allisson/restgate/internal/validation"
)

// Password length bounds accepted at registration.
const (
	MinPasswordLength = 4
	MaxPasswordLength = 128
)

// userUseCase implements UserUseCase.
type userUseCase struct {
	userRepo        UserRepository
	passwordService identityService.PasswordService
	tokenService    identityService.TokenService
}

// ValidateCredentials checks the email format and password length.
func ValidateCredentials(email, password string) error {
	err := validation.Errors{
		"email": validation.Validate(email,
			validation.Required.Error("email is required"),
			appValidation.NotBlank,
			appValidation.Email,
			validation.Length(3, 255),
		),
		"password": validation.Validate(password,
			validation.Required.Error("password is required"),
			validation.Length(MinPasswordLength, MaxPasswordLength).
				Error("password must be between 4 and 128 characters"),
		),
	}.Filter()
	return appValidation.WrapValidationError(err)
}

// Register validates the input, stores the user with a hashed password and signs a token.
func (u *userUseCase) Register(ctx context.Context, input *domain.RegisterInput) (*domain.AuthResult, error) {
	if err := ValidateCredentials(input.Email, input.Password); err != nil {
		return nil, err
	}

	hashed, err := u.passwordService.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	attributes := maps.Clone(input.Attributes)
	if attributes == nil {
		attributes = map[string]any{}
	}
	delete(attributes, domain.FieldEmail)
	delete(attributes, domain.FieldPassword)

	user := &domain.User{
		Email:        domain.NormalizeEmail(input.Email),
		PasswordHash: hashed,
		Attributes:   attributes,
	}
	if id, ok := attributes[domain.FieldID]; ok {
		user.ID = store.FormatID(id)
		delete(attributes, domain.FieldID)
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return u.issue(user)
}

// Login checks the password of the user registered with the email.
func (u *userUseCase) Login(ctx context.Context, input *domain.LoginInput) (*domain.AuthResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := u.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !u.passwordService.Compare(input.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return u.issue(user)
}

// Authenticate verifies a token. It does not look the user up, so tokens stay
// valid until they expire.
func (u *userUseCase) Authenticate(_ context.Context, token string) (*domain.Claims, error) {
	return u.tokenService.Verify(token)
}

func (u *userUseCase) issue(user *domain.User) (*domain.AuthResult, error) {
	token, claims, err := u.tokenService.Issue(user)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt,
		User:        user,
	}, nil
}

// NewUserUseCase creates a UserUseCase with the provided dependencies.
func NewUserUseCase(
	userRepo UserRepository,
	passwordService identityService.PasswordService,
	tokenService identityService.TokenService,
) UserUseCase {
	return &userUseCase{
		userRepo:        userRepo,
		passwordService: passwordService,
		tokenService:    tokenService,
	}
}
