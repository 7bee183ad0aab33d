// Package database owns the process-wide *sql.DB handle and transaction helper
// shared by every repository. Postgres is reached through the pgx stdlib
// driver; SQLite through the pure-Go modernc driver.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/ghuser/inventory/pkg/config"
	"github.com/ghuser/inventory/pkg/logger"
)

// Database wraps a pooled *sql.DB together with the driver it was opened with.
type Database struct {
	db     *sql.DB
	driver string
}

// NewPool opens a Postgres connection pool and verifies connectivity.
func NewPool(ctx context.Context, databaseURL string, log logger.Logger) (*Database, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Debug("postgres pool opened", "max_open_conns", 20)
	return &Database{db: db, driver: config.DriverPostgres}, nil
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
// Foreign keys are enforced on every pooled connection and writers wait on a
// busy lock instead of failing immediately.
func OpenSQLite(ctx context.Context, path string, log logger.Logger) (*Database, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	log.Debug("sqlite database opened", "path", path)
	return &Database{db: db, driver: config.DriverSQLite}, nil
}

// DB returns the underlying *sql.DB for non-transactional queries.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Driver returns config.DriverPostgres or config.DriverSQLite.
func (d *Database) Driver() string {
	return d.driver
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise; fn's error is returned unchanged so
// callers can match domain sentinels with errors.Is.
func (d *Database) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping checks the database connection health.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}
