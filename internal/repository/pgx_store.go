package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rpattn/dataql/internal/domain"
)

// PgxQuerier is the subset of *pgxpool.Pool the Postgres store needs.
type PgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PgxStore is a RowStore over a pgx pool.
type PgxStore struct {
	db PgxQuerier
}

// NewPgxStore creates a Postgres row store.
func NewPgxStore(db PgxQuerier) *PgxStore {
	return &PgxStore{db: db}
}

func (s *PgxStore) Select(ctx context.Context, q SelectQuery) ([]domain.Row, error) {
	query, args, err := buildSelect(PostgresDialect, q)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, query, args)
}

func (s *PgxStore) Count(ctx context.Context, q SelectQuery) (int64, error) {
	query, args, err := buildCount(PostgresDialect, q)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q.Table, classifyError(err))
	}
	return total, nil
}

func (s *PgxStore) SelectJoin(ctx context.Context, q JoinQuery) ([]domain.Row, error) {
	query, args, err := buildJoin(PostgresDialect, q)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, query, args)
}

// Insert does not report a last insert id; Postgres has no equivalent of it
// without RETURNING a known key column.
func (s *PgxStore) Insert(ctx context.Context, table string, rows []domain.Row) (InsertResult, error) {
	query, args, err := buildInsert(PostgresDialect, table, rows)
	if err != nil {
		return InsertResult{}, err
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to insert into %s: %w", table, classifyError(err))
	}
	return InsertResult{RowsAffected: tag.RowsAffected()}, nil
}

func (s *PgxStore) Update(ctx context.Context, table string, values domain.Row, where []domain.Condition) (int64, error) {
	query, args, err := buildUpdate(PostgresDialect, table, values, where)
	if err != nil {
		return 0, err
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", table, classifyError(err))
	}
	return tag.RowsAffected(), nil
}

func (s *PgxStore) query(ctx context.Context, query string, args []any) ([]domain.Row, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", classifyError(err))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := make([]domain.Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(domain.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = domain.NormalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", classifyError(err))
	}
	return result, nil
}
