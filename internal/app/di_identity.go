package app

import (
	"fmt"
	"sync"

	identityHTTP "github.com/allisson/restgate/internal/identity/http"
	identityRepository "github.com/allisson/restgate/internal/identity/repository"
	identityService "github.com/allisson/restgate/internal/identity/service"
	identityUseCase "github.com/allisson/restgate/internal/identity/usecase"
)

type identityComponents struct {
	passwordService identityService.PasswordService
	tokenService    identityService.TokenService
	userRepository  identityUseCase.UserRepository
	userUseCase     identityUseCase.UserUseCase
	handler         *identityHTTP.IdentityHandler

	passwordServiceInit sync.Once
	tokenServiceInit    sync.Once
	userRepositoryInit  sync.Once
	userUseCaseInit     sync.Once
	handlerInit         sync.Once
}

// PasswordService returns the Argon2id password hasher.
func (c *Container) PasswordService() (identityService.PasswordService, error) {
	c.identity.passwordServiceInit.Do(func() {
		var err error
		c.identity.passwordService, err = identityService.NewPasswordService()
		if err != nil {
			c.storeError("passwordService", fmt.Errorf("failed to create password service: %w", err))
		}
	})
	if err := c.loadError("passwordService"); err != nil {
		return nil, err
	}
	return c.identity.passwordService, nil
}

// TokenService returns the access token signer. Without AUTH_TOKEN_SECRET a
// random secret is generated, so tokens do not survive a restart.
func (c *Container) TokenService() (identityService.TokenService, error) {
	c.identity.tokenServiceInit.Do(func() {
		secret := c.config.AuthTokenSecret
		if secret == "" {
			generated, err := identityService.GenerateSecret()
			if err != nil {
				c.storeError("tokenService", err)
				return
			}
			c.Logger().Warn("AUTH_TOKEN_SECRET is not set, using a random secret for this process")
			secret = generated
		}

		var err error
		c.identity.tokenService, err = identityService.NewTokenService([]byte(secret), c.config.AuthTokenExpiration)
		if err != nil {
			c.storeError("tokenService", fmt.Errorf("failed to create token service: %w", err))
		}
	})
	if err := c.loadError("tokenService"); err != nil {
		return nil, err
	}
	return c.identity.tokenService, nil
}

// UserRepository returns the repository that keeps users in the users collection.
func (c *Container) UserRepository() (identityUseCase.UserRepository, error) {
	c.identity.userRepositoryInit.Do(func() {
		s, err := c.Store()
		if err != nil {
			c.storeError("userRepository", fmt.Errorf("failed to get store for user repository: %w", err))
			return
		}
		c.identity.userRepository = identityRepository.NewStoreUserRepository(s, c.config.UsersCollection)
	})
	if err := c.loadError("userRepository"); err != nil {
		return nil, err
	}
	return c.identity.userRepository, nil
}

// UserUseCase returns the instrumented user use case.
func (c *Container) UserUseCase() (identityUseCase.UserUseCase, error) {
	c.identity.userUseCaseInit.Do(func() {
		useCase, err := c.initUserUseCase()
		if err != nil {
			c.storeError("userUseCase", err)
			return
		}
		c.identity.userUseCase = useCase
	})
	if err := c.loadError("userUseCase"); err != nil {
		return nil, err
	}
	return c.identity.userUseCase, nil
}

// IdentityHandler returns the register and login handlers.
func (c *Container) IdentityHandler() (*identityHTTP.IdentityHandler, error) {
	c.identity.handlerInit.Do(func() {
		useCase, err := c.UserUseCase()
		if err != nil {
			c.storeError("identityHandler", err)
			return
		}
		c.identity.handler = identityHTTP.NewIdentityHandler(useCase, c.Logger())
	})
	if err := c.loadError("identityHandler"); err != nil {
		return nil, err
	}
	return c.identity.handler, nil
}

func (c *Container) initUserUseCase() (identityUseCase.UserUseCase, error) {
	userRepository, err := c.UserRepository()
	if err != nil {
		return nil, err
	}

	passwordService, err := c.PasswordService()
	if err != nil {
		return nil, err
	}

	tokenService, err := c.TokenService()
	if err != nil {
		return nil, err
	}

	baseUseCase := identityUseCase.NewUserUseCase(userRepository, passwordService, tokenService)

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for user use case: %w", err)
	}

	return identityUseCase.NewUserUseCaseWithMetrics(baseUseCase, businessMetrics), nil
}
