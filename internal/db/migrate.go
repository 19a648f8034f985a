package db

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/rpattn/dataql/internal/repository"
)

// RunMigrations applies the pending up migrations of config.Migrations.
// A namespace without a migrations directory is left alone.
func RunMigrations(config Config, logger *slog.Logger) error {
	if config.Migrations == "" {
		return nil
	}
	dbURL, err := migrationURL(config)
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(config.Migrations)
	if err != nil {
		return fmt.Errorf("failed to resolve migrations directory: %w", err)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(dir), dbURL)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migrations up to date", "dir", config.Migrations)
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	logger.Info("migrations applied", "dir", config.Migrations, "version", version, "dirty", dirty)
	return nil
}

// migrationURL turns a namespace DSN into the URL form the migrate drivers
// register under.
func migrationURL(config Config) (string, error) {
	dialect, err := repository.DialectFor(config.Driver)
	if err != nil {
		return "", err
	}
	dsn := config.DSN
	switch dialect {
	case repository.PostgresDialect:
		for _, prefix := range []string{"postgres://", "postgresql://"} {
			if strings.HasPrefix(dsn, prefix) {
				return "pgx5://" + strings.TrimPrefix(dsn, prefix), nil
			}
		}
		return "", fmt.Errorf("migrations need a postgres:// url dsn, got %q", dsn)
	case repository.MySQLDialect:
		return "mysql://" + dsn, nil
	default:
		return "sqlite3://" + dsn, nil
	}
}
