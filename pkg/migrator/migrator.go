// Package migrator applies goose SQL migrations. Each call builds its own
// goose.Provider, so the Postgres and SQLite stores can migrate concurrently
// in one process.
package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations opens dbURL with the pgx driver and applies every pending
// Postgres migration in files.
func RunMigrations(ctx context.Context, dbURL string, files fs.FS) ([]string, error) {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	return Up(ctx, db, goose.DialectPostgres, files)
}

// Up applies pending migrations found at the root of files to an already
// open db and returns the paths it applied, oldest first.
func Up(ctx context.Context, db *sql.DB, dialect goose.Dialect, files fs.FS) ([]string, error) {
	provider, err := goose.NewProvider(dialect, db, files)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to up migrations: %w", err)
	}

	applied := make([]string, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Path)
	}
	return applied, nil
}
