package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	// database/sql drivers for the non-Postgres namespaces
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rpattn/dataql/internal/repository"
)

// Config holds the connection settings of one namespace
type Config struct {
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	MaxConns   int    `mapstructure:"max_conns"`
	Migrations string `mapstructure:"migrations"`
}

// Validate checks the driver name and the DSN
func (c Config) Validate() error {
	if _, err := repository.DialectFor(c.Driver); err != nil {
		return err
	}
	if c.DSN == "" {
		return errors.New("missing dsn")
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("max_conns must not be negative, got %d", c.MaxConns)
	}
	return nil
}

// Connection wraps the handle of one namespace: a pgx pool for Postgres, a
// database/sql handle otherwise
type Connection struct {
	Pool *pgxpool.Pool
	DB   *sql.DB

	dialect repository.Dialect
}

// NewConnection opens the database described by config and checks it is
// reachable
func NewConnection(ctx context.Context, config Config) (*Connection, error) {
	dialect, err := repository.DialectFor(config.Driver)
	if err != nil {
		return nil, err
	}
	if dialect == repository.PostgresDialect {
		pool, err := newPool(ctx, config)
		if err != nil {
			return nil, err
		}
		return &Connection{Pool: pool, dialect: dialect}, nil
	}

	handle, err := sql.Open(dialect.Name(), config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name(), err)
	}
	maxConns := config.MaxConns
	if maxConns == 0 {
		maxConns = 5
	}
	if dialect == repository.SQLiteDialect {
		// every connection to ":memory:" is a separate database, so the
		// single connection must never be recycled
		handle.SetMaxOpenConns(1)
		handle.SetMaxIdleConns(1)
	} else {
		handle.SetMaxOpenConns(maxConns)
		handle.SetMaxIdleConns(maxConns)
		handle.SetConnMaxLifetime(30 * time.Minute)
		handle.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := handle.PingContext(ctx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Connection{DB: handle, dialect: dialect}, nil
}

func newPool(ctx context.Context, config Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 5
	if config.MaxConns > 0 {
		poolConfig.MaxConns = int32(config.MaxConns)
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Minute * 30
	poolConfig.MaxConnIdleTime = time.Minute * 5
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Store returns the row store over this connection
func (c *Connection) Store() repository.RowStore {
	if c.Pool != nil {
		return repository.NewPgxStore(c.Pool)
	}
	return repository.NewSQLStore(c.DB, c.dialect)
}

// Close closes the underlying handle
func (c *Connection) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}

// OpenAll connects every namespace. On failure the connections opened so
// far are closed again.
func OpenAll(ctx context.Context, namespaces map[string]Config) (repository.Registry, func(), error) {
	names := make([]string, 0, len(namespaces))
	for name := range namespaces {
		names = append(names, name)
	}
	sort.Strings(names)

	registry := make(repository.Registry, len(names))
	var conns []*Connection
	closeAll := func() {
		for _, c := range conns {
			c.Close()
		}
	}
	for _, name := range names {
		conn, err := NewConnection(ctx, namespaces[name])
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("namespace %s: %w", name, err)
		}
		conns = append(conns, conn)
		registry[name] = conn.Store()
	}
	return registry, closeAll, nil
}
