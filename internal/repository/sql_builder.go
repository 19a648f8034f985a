package repository

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rpattn/dataql/internal/domain"
)

type sqlBuilder struct {
	dialect Dialect
	args    []any
}

func newSQLBuilder(dialect Dialect) *sqlBuilder {
	return &sqlBuilder{dialect: dialect, args: make([]any, 0)}
}

func (b *sqlBuilder) addArg(value any) int {
	b.args = append(b.args, domain.NormalizeValue(value))
	return len(b.args)
}

func (b *sqlBuilder) placeholder(idx int) string {
	return b.dialect.Placeholder(idx)
}

func (b *sqlBuilder) bind(value any) string {
	return b.placeholder(b.addArg(value))
}

// ident quotes a bare or qualified identifier.
func (b *sqlBuilder) ident(name string) (string, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", domain.ParamErrorf("illegal identifier %s", name)
	}
	quoted := make([]string, len(parts))
	for i, p := range parts {
		if !domain.ValidIdentifier(p) {
			return "", domain.ParamErrorf("illegal identifier %s", name)
		}
		quoted[i] = b.dialect.QuoteIdent(p)
	}
	return strings.Join(quoted, "."), nil
}

func (b *sqlBuilder) columnList(fields []string, aliased bool) (string, error) {
	if len(fields) == 0 {
		return "*", nil
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		if f == "*" {
			cols[i] = f
			continue
		}
		if table, ok := strings.CutSuffix(f, ".*"); ok {
			quoted, err := b.ident(table)
			if err != nil || strings.Contains(table, ".") {
				return "", domain.ParamErrorf("illegal identifier %s", f)
			}
			cols[i] = quoted + ".*"
			continue
		}
		col, err := b.ident(f)
		if err != nil {
			return "", err
		}
		if aliased {
			col += " AS " + b.dialect.QuoteIdent(f)
		}
		cols[i] = col
	}
	return strings.Join(cols, ", "), nil
}

func (b *sqlBuilder) where(conds []domain.Condition) (string, error) {
	if len(conds) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(conds))
	for _, c := range conds {
		clause, err := b.condition(c)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return " WHERE " + strings.Join(clauses, " AND "), nil
}

func (b *sqlBuilder) condition(c domain.Condition) (string, error) {
	if _, ok := c.(domain.NoMatch); ok {
		return "1 = 0", nil
	}
	col, err := b.ident(c.Column())
	if err != nil {
		return "", err
	}

	switch v := c.(type) {
	case domain.Eq:
		if v.Value == nil {
			return col + " IS NULL", nil
		}
		return fmt.Sprintf("%s = %s", col, b.bind(v.Value)), nil
	case domain.In:
		if len(v.Values) == 0 {
			return "1 = 0", nil
		}
		holders := make([]string, len(v.Values))
		for i, item := range v.Values {
			holders[i] = b.bind(item)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(holders, ", ")), nil
	case domain.Like:
		return fmt.Sprintf("%s LIKE %s%s", col, b.bind(v.Pattern), b.dialect.LikeEscape()), nil
	case domain.LikeAll:
		if len(v.Patterns) == 0 {
			return "1 = 1", nil
		}
		likes := make([]string, len(v.Patterns))
		for i, p := range v.Patterns {
			likes[i] = fmt.Sprintf("%s LIKE %s%s", col, b.bind(p), b.dialect.LikeEscape())
		}
		return "(" + strings.Join(likes, " AND ") + ")", nil
	case domain.Between:
		low := b.bind(v.Low)
		high := b.bind(v.High)
		return fmt.Sprintf("%s BETWEEN %s AND %s", col, low, high), nil
	case domain.Compare:
		switch v.Op {
		case domain.OpGE, domain.OpGT, domain.OpLT, domain.OpLE, domain.OpNEQ:
		default:
			return "", domain.ParamErrorf("unsupported comparison %s", v.Op)
		}
		return fmt.Sprintf("%s %s %s", col, v.Op, b.bind(v.Value)), nil
	}
	return "", domain.ParamErrorf("unsupported condition %T", c)
}

func (b *sqlBuilder) orderBy(orders []Order) (string, error) {
	if len(orders) == 0 {
		return "", nil
	}
	terms := make([]string, len(orders))
	for i, o := range orders {
		col, err := b.ident(o.Field)
		if err != nil {
			return "", err
		}
		if o.Desc {
			col += " DESC"
		}
		terms[i] = col
	}
	return " ORDER BY " + strings.Join(terms, ", "), nil
}

func buildSelect(dialect Dialect, q SelectQuery) (string, []any, error) {
	b := newSQLBuilder(dialect)
	table, err := b.ident(q.Table)
	if err != nil {
		return "", nil, err
	}
	cols, err := b.columnList(q.Fields, false)
	if err != nil {
		return "", nil, err
	}
	where, err := b.where(q.Where)
	if err != nil {
		return "", nil, err
	}
	order, err := b.orderBy(q.OrderBy)
	if err != nil {
		return "", nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s%s", cols, table, where, order)
	if q.Limit > 0 {
		query += " LIMIT " + b.bind(q.Limit)
		if q.Offset > 0 {
			query += " OFFSET " + b.bind(q.Offset)
		}
	}
	return query, b.args, nil
}

func buildCount(dialect Dialect, q SelectQuery) (string, []any, error) {
	b := newSQLBuilder(dialect)
	table, err := b.ident(q.Table)
	if err != nil {
		return "", nil, err
	}
	where, err := b.where(q.Where)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) AS %s FROM %s%s", dialect.QuoteIdent("total"), table, where), b.args, nil
}

func buildJoin(dialect Dialect, q JoinQuery) (string, []any, error) {
	b := newSQLBuilder(dialect)
	left, err := b.ident(q.Left)
	if err != nil {
		return "", nil, err
	}
	right, err := b.ident(q.Right)
	if err != nil {
		return "", nil, err
	}
	leftOn, err := b.ident(q.LeftOn)
	if err != nil {
		return "", nil, err
	}
	rightOn, err := b.ident(q.RightOn)
	if err != nil {
		return "", nil, err
	}
	if len(q.Fields) == 0 {
		return "", nil, domain.ParamErrorf("join %s with %s selects no field", q.Left, q.Right)
	}
	cols, err := b.columnList(q.Fields, true)
	if err != nil {
		return "", nil, err
	}
	where, err := b.where(q.Where)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT DISTINCT %s FROM %s INNER JOIN %s ON %s = %s%s",
		cols, left, right, leftOn, rightOn, where), b.args, nil
}

func sortedColumns(row domain.Row) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func buildInsert(dialect Dialect, table string, rows []domain.Row) (string, []any, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return "", nil, domain.ParamErrorf("nothing to insert into %s", table)
	}
	b := newSQLBuilder(dialect)
	quotedTable, err := b.ident(table)
	if err != nil {
		return "", nil, err
	}
	columns := sortedColumns(rows[0])
	quotedCols := make([]string, len(columns))
	for i, c := range columns {
		if quotedCols[i], err = b.ident(c); err != nil {
			return "", nil, err
		}
	}

	tuples := make([]string, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, domain.ParamErrorf("row %d of %s has different columns", i, table)
		}
		holders := make([]string, len(columns))
		for j, c := range columns {
			v, ok := row[c]
			if !ok {
				return "", nil, domain.ParamErrorf("row %d of %s has no column %s", i, table, c)
			}
			holders[j] = b.bind(v)
		}
		tuples[i] = "(" + strings.Join(holders, ", ") + ")"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quotedTable, strings.Join(quotedCols, ", "), strings.Join(tuples, ", ")), b.args, nil
}

func buildUpdate(dialect Dialect, table string, values domain.Row, conds []domain.Condition) (string, []any, error) {
	if len(values) == 0 {
		return "", nil, domain.ParamErrorf("nothing to update in %s", table)
	}
	if len(conds) == 0 {
		return "", nil, domain.ParamErrorf("update of %s without condition", table)
	}
	b := newSQLBuilder(dialect)
	quotedTable, err := b.ident(table)
	if err != nil {
		return "", nil, err
	}
	columns := sortedColumns(values)
	sets := make([]string, len(columns))
	for i, c := range columns {
		col, err := b.ident(c)
		if err != nil {
			return "", nil, err
		}
		sets[i] = fmt.Sprintf("%s = %s", col, b.bind(values[c]))
	}
	where, err := b.where(conds)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("UPDATE %s SET %s%s", quotedTable, strings.Join(sets, ", "), where), b.args, nil
}
