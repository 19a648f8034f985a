package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/dataql/internal/logging"
	"github.com/rpattn/dataql/internal/repository"
)

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		config Config
		want   string
	}{
		{Config{Driver: "postgres", DSN: "postgres://u:p@localhost:5432/app?sslmode=disable"}, "pgx5://u:p@localhost:5432/app?sslmode=disable"},
		{Config{Driver: "pgx", DSN: "postgresql://localhost/app"}, "pgx5://localhost/app"},
		{Config{Driver: "mysql", DSN: "u:p@tcp(localhost:3306)/app"}, "mysql://u:p@tcp(localhost:3306)/app"},
		{Config{Driver: "sqlite3", DSN: "/tmp/app.db"}, "sqlite3:///tmp/app.db"},
	}
	for _, tt := range tests {
		t.Run(tt.config.Driver, func(t *testing.T) {
			got, err := migrationURL(tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := migrationURL(Config{Driver: "postgres", DSN: "host=localhost dbname=app"})
	assert.Error(t, err)
	_, err = migrationURL(Config{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Driver: "sqlite3", DSN: ":memory:"}.Validate())
	assert.Error(t, Config{Driver: "oracle", DSN: "x"}.Validate())
	assert.Error(t, Config{Driver: "mysql"}.Validate())
	assert.Error(t, Config{Driver: "mysql", DSN: "x", MaxConns: -1}.Validate())
}

func TestRunMigrationsAndOpen(t *testing.T) {
	dir := t.TempDir()
	migrations := filepath.Join(dir, "migrations")
	require.NoError(t, os.Mkdir(migrations, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "0001_role.up.sql"),
		[]byte("CREATE TABLE role (id INTEGER PRIMARY KEY, role_name TEXT NOT NULL);\nINSERT INTO role (id, role_name) VALUES (1, 'admin');\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(migrations, "0001_role.down.sql"),
		[]byte("DROP TABLE role;\n"), 0o644))

	config := Config{Driver: "sqlite3", DSN: filepath.Join(dir, "app.db"), Migrations: migrations}
	require.NoError(t, RunMigrations(config, logging.Discard()))
	// a second run has nothing left to apply
	require.NoError(t, RunMigrations(config, logging.Discard()))

	ctx := context.Background()
	registry, closeAll, err := OpenAll(ctx, map[string]Config{"main": config})
	require.NoError(t, err)
	defer closeAll()

	store, err := registry.Get("main")
	require.NoError(t, err)
	rows, err := store.Select(ctx, repository.SelectQuery{Table: "role", Fields: []string{"role_name"}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "admin", rows[0]["role_name"])
}

func TestRunMigrationsWithoutDirectory(t *testing.T) {
	assert.NoError(t, RunMigrations(Config{Driver: "sqlite3", DSN: ":memory:"}, logging.Discard()))
}

func TestOpenAllFailsOnBadNamespace(t *testing.T) {
	_, _, err := OpenAll(context.Background(), map[string]Config{
		"main":   {Driver: "sqlite3", DSN: ":memory:"},
		"legacy": {Driver: "oracle", DSN: "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace legacy")
}
