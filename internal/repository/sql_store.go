package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpattn/dataql/internal/domain"
)

// SQLStore is a RowStore over database/sql, used for the MySQL and SQLite
// backends.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore creates a row store speaking dialect over db.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Select(ctx context.Context, q SelectQuery) ([]domain.Row, error) {
	query, args, err := buildSelect(s.dialect, q)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, query, args)
}

func (s *SQLStore) Count(ctx context.Context, q SelectQuery) (int64, error) {
	query, args, err := buildCount(s.dialect, q)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q.Table, classifyError(err))
	}
	return total, nil
}

func (s *SQLStore) SelectJoin(ctx context.Context, q JoinQuery) ([]domain.Row, error) {
	query, args, err := buildJoin(s.dialect, q)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, query, args)
}

func (s *SQLStore) Insert(ctx context.Context, table string, rows []domain.Row) (InsertResult, error) {
	query, args, err := buildInsert(s.dialect, table, rows)
	if err != nil {
		return InsertResult{}, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to insert into %s: %w", table, classifyError(err))
	}
	var out InsertResult
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	return out, nil
}

func (s *SQLStore) Update(ctx context.Context, table string, values domain.Row, where []domain.Condition) (int64, error) {
	query, args, err := buildUpdate(s.dialect, table, values, where)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", table, classifyError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func (s *SQLStore) query(ctx context.Context, query string, args []any) ([]domain.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", classifyError(err))
	}
	defer rows.Close()
	return scanSQLRows(rows)
}

func scanSQLRows(rows *sql.Rows) ([]domain.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := make([]domain.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = domain.NormalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", classifyError(err))
	}
	return result, nil
}
