package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/tripmind/internal/config"
)

// NewPool opens a pgx pool and waits until the database answers. The bot only
// keeps chat bindings and rate-limit windows, so the pool stays small.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnIdleTime = config.EngineIdleTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := waitForDatabase(ctx, pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// waitForDatabase retries ping with a linear backoff.
func waitForDatabase(ctx context.Context, ping func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= config.DBConnectAttempts; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if attempt == config.DBConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * config.DBConnectBackoff):
		}
	}
	return fmt.Errorf("ping database after %d attempts: %w", config.DBConnectAttempts, err)
}

// RunMigrations applies every pending migration from migrationsFS and returns
// the schema version it left the database at.
func RunMigrations(databaseURL string, migrationsFS fs.FS) (uint, error) {
	src, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return 0, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}
