package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/repository"
)

// reachMap maps a primary join key to the terminal values reachable from it.
type reachMap map[any][]any

// runForward resolves every forward query for rows and merges the values
// onto them. The queries are independent and run concurrently.
func (e *engine) runForward(ctx context.Context, forward []forwardQuery, rows []domain.Row) error {
	if len(forward) == 0 || len(rows) == 0 {
		for _, fq := range forward {
			mergeForward(rows, fq, nil)
		}
		return nil
	}

	reaches := make([]reachMap, len(forward))
	g, gctx := errgroup.WithContext(ctx)
	for i, fq := range forward {
		g.Go(func() error {
			reach, err := e.walkForward(gctx, fq, rows)
			if err != nil {
				return err
			}
			reaches[i] = reach
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, fq := range forward {
		mergeForward(rows, fq, reaches[i])
	}
	return nil
}

// walkForward follows fq's path away from the primary object. Every hop
// selects the column it was filtered on together with the column the next
// hop joins on, so the reach of each primary key can be expanded hop by hop.
// The right table's full row is selected too: distinct rows sharing a value
// each count once, and repeated values are kept in the reach.
func (e *engine) walkForward(ctx context.Context, fq forwardQuery, rows []domain.Row) (reachMap, error) {
	bases := distinctValues(rows, fq.baseKey)
	reach := make(reachMap, len(bases))
	for _, b := range bases {
		reach[domain.KeyOf(b)] = []any{b}
	}
	current := bases

	path := fq.path
	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		edge, _ := e.svc.graph.Edge(from, to)
		over := edge.Side(from)
		last := i+2 == len(path)

		var selected string
		if last {
			selected = fq.key.Qualified()
		} else {
			next, _ := e.svc.graph.Edge(to, path[i+2])
			selected = next.Side(to)
		}

		hopRows, err := e.hop(ctx, repository.JoinQuery{
			Left:    from,
			Right:   to,
			LeftOn:  over,
			RightOn: edge.Side(to),
			Fields:  []string{over, selected, to + ".*"},
			Where:   []domain.Condition{domain.InOrNoMatch(over, current)},
		})
		if err != nil {
			return nil, err
		}

		byKey := make(map[any][]any, len(hopRows))
		for _, row := range hopRows {
			k := row[over]
			v := row[selected]
			if k == nil || (v == nil && !last) {
				continue
			}
			key := domain.KeyOf(k)
			byKey[key] = append(byKey[key], v)
		}

		for base, values := range reach {
			var expanded []any
			for _, v := range values {
				expanded = append(expanded, byKey[domain.KeyOf(v)]...)
			}
			reach[base] = expanded
		}
		if !last {
			current = reachedValues(reach)
		}
	}

	e.logger.DebugContext(ctx, "forward query resolved",
		"path", path.String(), "field", fq.key.Output(), "keys", len(reach))
	return reach, nil
}

func reachedValues(reach reachMap) []any {
	var out []any
	seen := make(map[any]bool)
	for _, values := range reach {
		for _, v := range values {
			k := domain.KeyOf(v)
			if v == nil || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}
