package repository

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect captures the SQL differences between the supported backends.
type Dialect interface {
	Name() string
	Placeholder(idx int) string
	QuoteIdent(name string) string
	// LikeEscape is appended to every LIKE so that \% and \_ match literally.
	LikeEscape() string
}

type postgresDialect struct{}

func (postgresDialect) Name() string                  { return "postgres" }
func (postgresDialect) Placeholder(idx int) string    { return fmt.Sprintf("$%d", idx) }
func (postgresDialect) QuoteIdent(name string) string { return pq.QuoteIdentifier(name) }
func (postgresDialect) LikeEscape() string            { return ` ESCAPE '\'` }

type mysqlDialect struct{}

func (mysqlDialect) Name() string               { return "mysql" }
func (mysqlDialect) Placeholder(int) string     { return "?" }
func (mysqlDialect) LikeEscape() string         { return ` ESCAPE '\\'` }
func (mysqlDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string           { return "sqlite3" }
func (sqliteDialect) Placeholder(int) string { return "?" }
func (sqliteDialect) LikeEscape() string     { return ` ESCAPE '\'` }
func (sqliteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var (
	PostgresDialect Dialect = postgresDialect{}
	MySQLDialect    Dialect = mysqlDialect{}
	SQLiteDialect   Dialect = sqliteDialect{}
)

// DialectFor returns the dialect of a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return PostgresDialect, nil
	case "mysql":
		return MySQLDialect, nil
	case "sqlite", "sqlite3":
		return SQLiteDialect, nil
	}
	return nil, fmt.Errorf("unsupported driver %q", driver)
}
