package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

const (
	mysqlErrNoSuchTable = 1146
	pgUndefinedTable    = "42P01"
)

// classifyError marks backend errors that mean the table does not exist so
// callers can test them with errors.Is(err, ErrTableNotFound).
func classifyError(err error) error {
	if err == nil || errors.Is(err, ErrTableNotFound) {
		return err
	}
	if isTableNotFound(err) {
		return fmt.Errorf("%w: %w", ErrTableNotFound, err)
	}
	return err
}

func isTableNotFound(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrNoSuchTable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return strings.Contains(liteErr.Error(), "no such table")
	}
	return false
}
