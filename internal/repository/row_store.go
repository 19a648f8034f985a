package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/rpattn/dataql/internal/domain"
)

// ErrTableNotFound is wrapped into errors returned by a RowStore when the
// backend does not know the queried table.
var ErrTableNotFound = errors.New("table not found")

// Order is one ORDER BY term.
type Order struct {
	Field string
	Desc  bool
}

// SelectQuery describes a single-table read.
type SelectQuery struct {
	Table   string
	Fields  []string
	Where   []domain.Condition
	OrderBy []Order
	Limit   int
	Offset  int
}

// JoinQuery describes one two-table lookup. Fields and the ON columns are
// qualified ("table.field"); each selected field is returned under its
// qualified name. Rows are distinct.
type JoinQuery struct {
	Left    string
	Right   string
	LeftOn  string
	RightOn string
	Fields  []string
	Where   []domain.Condition
}

// InsertResult reports the outcome of an insert.
type InsertResult struct {
	LastInsertID int64 `json:"last_insert_id"`
	RowsAffected int64 `json:"rows_affected"`
}

// RowStore is the row store a namespace is backed by.
type RowStore interface {
	Select(ctx context.Context, q SelectQuery) ([]domain.Row, error)
	Count(ctx context.Context, q SelectQuery) (int64, error)
	SelectJoin(ctx context.Context, q JoinQuery) ([]domain.Row, error)
	Insert(ctx context.Context, table string, rows []domain.Row) (InsertResult, error)
	Update(ctx context.Context, table string, values domain.Row, where []domain.Condition) (int64, error)
}

// Registry maps namespaces to their row stores.
type Registry map[string]RowStore

// Get returns the store of namespace.
func (r Registry) Get(namespace string) (RowStore, error) {
	store, ok := r[namespace]
	if !ok {
		return nil, domain.ParamErrorf("unknown namespace %s", namespace)
	}
	return store, nil
}

// Namespaces lists the registered namespaces in sorted order.
func (r Registry) Namespaces() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
