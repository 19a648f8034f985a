package query

import (
	"context"

	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/repository"
	"github.com/rpattn/dataql/internal/schema"
)

// resolveBack runs the back queries and turns their key sets into filters on
// the primary object. Key sets landing on the same primary column are
// intersected.
func (e *engine) resolveBack(ctx context.Context, back []*backQuery) ([]domain.Condition, error) {
	keySets := make(map[string][]any)
	var order []string
	for _, bq := range back {
		column, values, err := e.walkBack(ctx, bq)
		if err != nil {
			return nil, err
		}
		existing, ok := keySets[column]
		if !ok {
			keySets[column] = values
			order = append(order, column)
			continue
		}
		keySets[column] = intersect(existing, values)
	}

	conds := make([]domain.Condition, 0, len(order))
	for _, column := range order {
		conds = append(conds, domain.InOrNoMatch(column, keySets[column]))
	}
	return conds, nil
}

// walkBack follows bq's path toward the primary object. Each hop selects the
// column the next hop joins on; the last hop selects the primary join column.
func (e *engine) walkBack(ctx context.Context, bq *backQuery) (string, []any, error) {
	path := bq.path
	where := bq.where
	var (
		selected string
		values   []any
	)
	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		edge, _ := e.svc.graph.Edge(from, to)
		if i+2 == len(path) {
			selected = edge.Side(to)
		} else {
			next, _ := e.svc.graph.Edge(to, path[i+2])
			selected = next.Side(to)
		}

		rows, err := e.hop(ctx, repository.JoinQuery{
			Left:    from,
			Right:   to,
			LeftOn:  edge.Side(from),
			RightOn: edge.Side(to),
			Fields:  []string{selected},
			Where:   where,
		})
		if err != nil {
			return "", nil, err
		}
		values = distinctValues(rows, selected)
		where = []domain.Condition{domain.InOrNoMatch(selected, values)}
	}

	e.logger.DebugContext(ctx, "back query resolved",
		"path", path.String(), "column", selected, "keys", len(values))
	_, column := schema.SplitQualified(selected)
	return column, values, nil
}

// distinctValues collects the non-null values of column in first seen order.
func distinctValues(rows []domain.Row, column string) []any {
	seen := make(map[any]bool, len(rows))
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		v := row[column]
		if v == nil {
			continue
		}
		k := domain.KeyOf(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

func intersect(a, b []any) []any {
	inB := make(map[any]bool, len(b))
	for _, v := range b {
		inB[domain.KeyOf(v)] = true
	}
	out := make([]any, 0, len(a))
	for _, v := range a {
		if inB[domain.KeyOf(v)] {
			out = append(out, v)
		}
	}
	return out
}
