package query

import (
	"sort"

	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/schema"
)

// backQuery restricts the primary object through filters on another table.
// Path runs from the filtered table to the primary object.
type backQuery struct {
	path  schema.JoinPath
	where []domain.Condition
}

type compiledRules struct {
	direct []domain.Condition
	back   []*backQuery
}

// compileRules splits a rule map into filters on the primary object and back
// queries. Rules on the same foreign table share one back query.
func compileRules(gr *schema.Graph, rule map[string]any, primary string) (compiledRules, error) {
	var out compiledRules
	keys := make([]string, 0, len(rule))
	for k := range rule {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	byTable := make(map[string]*backQuery)
	for _, raw := range keys {
		key := ParseKey(raw, primary)
		if err := key.validate(); err != nil {
			return compiledRules{}, err
		}

		if !key.Foreign {
			cond, err := compileCondition(key.Op, key.Field, rule[raw])
			if err != nil {
				return compiledRules{}, err
			}
			out.direct = append(out.direct, cond)
			continue
		}

		cond, err := compileCondition(key.Op, key.Qualified(), rule[raw])
		if err != nil {
			return compiledRules{}, err
		}
		bq, ok := byTable[key.Table]
		if !ok {
			path, err := gr.ShortestPath(key.Table, primary)
			if err != nil {
				return compiledRules{}, err
			}
			bq = &backQuery{path: path}
			byTable[key.Table] = bq
			out.back = append(out.back, bq)
		}
		bq.where = append(bq.where, cond)
	}
	return out, nil
}
