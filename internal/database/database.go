// Package database manages the PostgreSQL pool that backs content type
// snapshots and the audit log.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// applicationName identifies studio sessions in pg_stat_activity.
const applicationName = "mithril-studio"

const (
	defaultHealthTimeout     = 2 * time.Second
	defaultHealthCheckPeriod = 30 * time.Second
	defaultMaxConnIdleTime   = 5 * time.Minute
)

// Options tunes the pool. Zero values keep the defaults.
type Options struct {
	// MaxConns caps the pool size.
	MaxConns int32

	// HealthTimeout bounds the ping issued by Health, so a stalled database
	// fails GET /health instead of hanging it.
	HealthTimeout time.Duration
}

// DB wraps a pgx connection pool.
type DB struct {
	pool          *pgxpool.Pool
	healthTimeout time.Duration
}

// New opens a pool for databaseURL and pings it.
func New(ctx context.Context, databaseURL string, opts Options) (*DB, error) {
	config, err := poolConfig(databaseURL, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	healthTimeout := opts.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = defaultHealthTimeout
	}
	return &DB{pool: pool, healthTimeout: healthTimeout}, nil
}

// poolConfig parses databaseURL and applies the studio's pool settings. An
// application_name set in the URL is kept.
func poolConfig(databaseURL string, opts Options) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	config.HealthCheckPeriod = defaultHealthCheckPeriod
	config.MaxConnIdleTime = defaultMaxConnIdleTime
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	return config, nil
}

// Close releases all connections in the pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Health pings the database within the configured health timeout. A failing
// ping reports how busy the pool was.
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.healthTimeout)
	defer cancel()

	if err := db.pool.Ping(ctx); err != nil {
		stat := db.pool.Stat()
		return fmt.Errorf("database ping failed (%d/%d connections in use): %w",
			stat.AcquiredConns(), stat.MaxConns(), err)
	}
	return nil
}

// Pool returns the underlying pool for queries.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}
