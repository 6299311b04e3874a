// Package database opens the SQL connection pool used by the postgres and
// mysql store drivers and carries transactions through context.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// DefaultPingTimeout bounds the startup ping when Config.PingTimeout is zero.
const DefaultPingTimeout = 5 * time.Second

// SupportedDrivers are the database/sql drivers a SQL store can run on.
var SupportedDrivers = []string{"postgres", "mysql"}

// Config describes the SQL pool backing a store.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	PingTimeout        time.Duration
}

// Connect opens the store pool and checks the backend answers within
// PingTimeout. The pool is closed again when it does not.
func Connect(cfg Config) (*sql.DB, error) {
	if !slices.Contains(SupportedDrivers, cfg.Driver) {
		return nil, fmt.Errorf("unsupported SQL store driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store pool: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s store unreachable: %w", cfg.Driver, err)
	}
	return db, nil
}
