package app

import (
	"fmt"
	"sync"

	"github.com/allisson/restgate/internal/http"
	resourceHTTP "github.com/allisson/restgate/internal/resource/http"
	resourceUseCase "github.com/allisson/restgate/internal/resource/usecase"
)

type gatewayComponents struct {
	resourceUseCase resourceUseCase.ResourceUseCase
	resourceHandler *resourceHTTP.ResourceHandler
	httpServer      *http.Server
	metricsServer   *http.MetricsServer

	resourceUseCaseInit sync.Once
	resourceHandlerInit sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
}

// ResourceUseCase returns the collection CRUD use case. The password hash of
// stored users is never readable or writable through it.
func (c *Container) ResourceUseCase() (resourceUseCase.ResourceUseCase, error) {
	c.gateway.resourceUseCaseInit.Do(func() {
		s, err := c.Store()
		if err != nil {
			c.storeError("resourceUseCase", fmt.Errorf("failed to get store for resource use case: %w", err))
			return
		}
		c.gateway.resourceUseCase = resourceUseCase.NewResourceUseCase(
			s,
			resourceUseCase.WithProtectedFields(c.config.UsersCollection, "password"),
		)
	})
	if err := c.loadError("resourceUseCase"); err != nil {
		return nil, err
	}
	return c.gateway.resourceUseCase, nil
}

// ResourceHandler returns the collection CRUD handlers.
func (c *Container) ResourceHandler() (*resourceHTTP.ResourceHandler, error) {
	c.gateway.resourceHandlerInit.Do(func() {
		useCase, err := c.ResourceUseCase()
		if err != nil {
			c.storeError("resourceHandler", err)
			return
		}
		c.gateway.resourceHandler = resourceHTTP.NewResourceHandler(useCase, c.Logger())
	})
	if err := c.loadError("resourceHandler"); err != nil {
		return nil, err
	}
	return c.gateway.resourceHandler, nil
}

// HTTPServer returns the gateway server with its router set up.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.gateway.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.storeError("httpServer", err)
			return
		}
		c.gateway.httpServer = server
	})
	if err := c.loadError("httpServer"); err != nil {
		return nil, err
	}
	return c.gateway.httpServer, nil
}

// MetricsServer returns the standalone metrics server, or nil when METRICS_PORT is 0.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	if c.config.MetricsPort == 0 {
		return nil, nil
	}

	c.gateway.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.storeError("metricsServer", err)
			return
		}
		c.gateway.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if err := c.loadError("metricsServer"); err != nil {
		return nil, err
	}
	return c.gateway.metricsServer, nil
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	s, err := c.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for http server: %w", err)
	}

	deps, err := c.routerDeps()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble http server: %w", err)
	}

	server := http.NewServer(s, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(c.ctx, c.config, deps)
	return server, nil
}

func (c *Container) routerDeps() (http.RouterDeps, error) {
	evaluator, err := c.Evaluator()
	if err != nil {
		return http.RouterDeps{}, err
	}
	userUseCase, err := c.UserUseCase()
	if err != nil {
		return http.RouterDeps{}, err
	}
	identityHandler, err := c.IdentityHandler()
	if err != nil {
		return http.RouterDeps{}, err
	}
	resourceHandler, err := c.ResourceHandler()
	if err != nil {
		return http.RouterDeps{}, err
	}
	provider, err := c.MetricsProvider()
	if err != nil {
		return http.RouterDeps{}, err
	}

	return http.RouterDeps{
		Evaluator:       evaluator,
		UserUseCase:     userUseCase,
		IdentityHandler: identityHandler,
		ResourceHandler: resourceHandler,
		MetricsProvider: provider,
	}, nil
}
