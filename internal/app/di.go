// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/restgate/internal/config"
	"github.com/allisson/restgate/internal/database"
	"github.com/allisson/restgate/internal/metrics"
	"github.com/allisson/restgate/internal/store"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Lifetime of background goroutines started by components.
	ctx    context.Context
	cancel context.CancelFunc

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	store           store.Store

	// Access control
	access accessComponents

	// Identity
	identity identityComponents

	// Servers
	gateway gatewayComponents

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	storeInit           sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// storeError records an initialization error under name.
func (c *Container) storeError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErrors[name] = err
}

// loadError returns the initialization error recorded under name.
func (c *Container) loadError(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

// DB returns the database connection used by the SQL store drivers.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		var err error
		c.db, err = c.initDB()
		if err != nil {
			c.storeError("db", err)
		}
	})
	if err := c.loadError("db"); err != nil {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		var err error
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.storeError("txManager", err)
		}
	})
	if err := c.loadError("txManager"); err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry provider backing the Prometheus exposition.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		var err error
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace, c.Logger())
		if err != nil {
			c.storeError("metricsProvider", fmt.Errorf("failed to create metrics provider: %w", err))
		}
	})
	if err := c.loadError("metricsProvider"); err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the operation counters shared by the store and identity decorators.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.storeError("businessMetrics", err)
			return
		}
		c.businessMetrics, err = metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.Logger().Warn("business metrics disabled", slog.Any("error", err))
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
		}
	})
	if err := c.loadError("businessMetrics"); err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

// Store returns the instrumented, seeded resource store for the configured driver.
func (c *Container) Store() (store.Store, error) {
	c.storeInit.Do(func() {
		var err error
		c.store, err = c.initStore()
		if err != nil {
			c.storeError("store", err)
		}
	})
	if err := c.loadError("store"); err != nil {
		return nil, err
	}
	return c.store, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.gateway.httpServer != nil {
		if err := c.gateway.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.gateway.metricsServer != nil {
		if err := c.gateway.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// The SQL and redis stores own their connections.
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("store close: %w", err))
		}
	} else if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB opens the database selected by STORE_DRIVER.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.sqlDriverName(),
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// sqlDriverName returns the database/sql driver for the configured store.
// DB_DRIVER is only consulted when the store driver is not a SQL one.
func (c *Container) sqlDriverName() string {
	switch c.config.StoreDriver {
	case config.StoreDriverPostgres, config.StoreDriverMySQL:
		return c.config.StoreDriver
	default:
		return c.config.DBDriver
	}
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initStore opens the backend, wraps it with metrics and seeds it.
func (c *Container) initStore() (store.Store, error) {
	base, err := c.openStore()
	if err != nil {
		return nil, err
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	s := store.NewStoreWithMetrics(base, businessMetrics)

	if err := c.seedStore(s); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// openStore creates the raw backend for STORE_DRIVER.
func (c *Container) openStore() (store.Store, error) {
	logger := c.Logger()

	switch c.config.StoreDriver {
	case config.StoreDriverMemory:
		var opts []store.MemoryOption
		if c.config.StoreSnapshotURL != "" {
			snapshot, err := store.OpenBlobSnapshot(c.ctx, c.config.StoreSnapshotURL, c.config.StoreSnapshotKey)
			if err != nil {
				return nil, err
			}
			opts = append(opts, store.WithSnapshotter(snapshot))
			logger.Info("memory store persistence enabled",
				slog.String("url", c.config.StoreSnapshotURL),
				slog.String("key", c.config.StoreSnapshotKey),
			)
		}
		memory, err := store.NewMemoryStore(c.ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory store: %w", err)
		}
		return memory, nil

	case config.StoreDriverPostgres, config.StoreDriverMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		txManager, err := c.TxManager()
		if err != nil {
			return nil, err
		}
		if c.config.StoreDriver == config.StoreDriverMySQL {
			return store.NewMySQLStore(db, txManager), nil
		}
		return store.NewPostgreSQLStore(db, txManager), nil

	case config.StoreDriverRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{c.config.RedisAddr},
			Password: c.config.RedisPassword,
			DB:       c.config.RedisDB,
		})
		if err := client.Ping(c.ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store.NewRedisStore(client, c.config.RedisKeyPrefix), nil

	default:
		return nil, fmt.Errorf("unsupported store driver: %s", c.config.StoreDriver)
	}
}

// seedStore loads STORE_SEED_FILE and makes sure the users collection and every
// masked collection exist.
func (c *Container) seedStore(s store.Store) error {
	logger := c.Logger()

	if c.config.StoreSeedFile != "" {
		doc, err := store.LoadDocumentFile(c.config.StoreSeedFile)
		if err != nil {
			return err
		}
		created, err := store.Seed(c.ctx, s, doc)
		if err != nil {
			return err
		}
		logger.Info("store seeded",
			slog.String("file", c.config.StoreSeedFile),
			slog.Int("records", created),
		)
	}

	rules, err := c.RuleSet()
	if err != nil {
		return err
	}

	collections := []string{c.config.UsersCollection}
	for _, rule := range rules.Rules() {
		collections = append(collections, rule.Collection)
	}
	for _, collection := range collections {
		if err := s.EnsureCollection(c.ctx, collection); err != nil {
			return fmt.Errorf("failed to create collection %q: %w", collection, err)
		}
	}

	return nil
}
