package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// NewPgxPool creates a new PostgreSQL connection pool. When ping is true the
// connection is verified before returning.
func NewPgxPool(ctx context.Context, databaseURL string, ping bool) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config from URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if ping {
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
	}

	slog.Info("Successfully connected to PostgreSQL database.")
	return pool, nil
}

// ClosePgxPool closes the PostgreSQL connection pool.
func ClosePgxPool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
		slog.Info("PostgreSQL connection pool closed.")
	}
}

// MigrationResult reports what RunMigrations did.
type MigrationResult struct {
	Version uint
	Dirty   bool
	Applied bool
}

// RunMigrations applies every pending "up" migration found at migrationsPath
// (a golang-migrate source URL such as file://migrations). A temporary database/sql
// connection over the pgx stdlib driver is used for the run.
func RunMigrations(databaseURL, migrationsPath string) (*MigrationResult, error) {
	return runMigrations(databaseURL, migrationsPath, func(m *migrate.Migrate) error { return m.Up() })
}

// RollbackMigrations reverts the given number of migrations.
func RollbackMigrations(databaseURL, migrationsPath string, steps int) (*MigrationResult, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive")
	}
	return runMigrations(databaseURL, migrationsPath, func(m *migrate.Migrate) error { return m.Steps(-steps) })
}

func runMigrations(databaseURL, migrationsPath string, run func(m *migrate.Migrate) error) (*MigrationResult, error) {
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection for migrations: %w", err)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			slog.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create postgres driver instance for migrations: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}

	runErr := run(m)
	if runErr != nil && !errors.Is(runErr, migrate.ErrNoChange) {
		return nil, fmt.Errorf("failed to apply migrations: %w", runErr)
	}

	result := &MigrationResult{Applied: runErr == nil}
	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("failed to read migration version: %w", verr)
	}
	result.Version, result.Dirty = version, dirty

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return nil, fmt.Errorf("migration source error: %w", sourceErr)
	}
	if dbErr != nil {
		return nil, fmt.Errorf("migration database error: %w", dbErr)
	}
	return result, nil
}
