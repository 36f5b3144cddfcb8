package database

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// RunMigrations applies every pending embedded migration. When schemaName is
// non-empty, golang-migrate tracks its own version table inside that schema
// instead of "public" — the per-test-schema isolation test/util relies on.
func RunMigrations(db *stdsql.DB, databaseName, schemaName string) error {
	hasMigrations, err := hasEmbeddedMigrations()
	if err != nil {
		return fmt.Errorf("check embedded migrations: %w", err)
	}
	if !hasMigrations {
		return fmt.Errorf("no embedded migration files found — binary built incorrectly")
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{SchemaName: schemaName})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, databaseName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Close only the migration source; m.Close() would also close db, which
	// the caller still owns.
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("close migration source: %w", err)
	}
	return nil
}

func hasEmbeddedMigrations() (bool, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read embedded migrations: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && len(entry.Name()) > 4 && entry.Name()[len(entry.Name())-4:] == ".sql" {
			return true, nil
		}
	}
	return false, nil
}

// CreateSupportingIndexes creates GIN indexes on two JSONB columns,
// evaluations.criteria_scores and submission_sources.metadata, analogous to the teacher's full-text GIN indexes but scoped to this
// domain's JSON payloads instead of free-text columns.
func CreateSupportingIndexes(ctx context.Context, db *stdsql.DB) error {
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_criteria_scores_gin ON evaluations USING gin(criteria_scores)`); err != nil {
		return fmt.Errorf("create criteria_scores GIN index: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_submission_sources_metadata_gin ON submission_sources USING gin(metadata)`); err != nil {
		return fmt.Errorf("create submission_sources metadata GIN index: %w", err)
	}
	return nil
}
