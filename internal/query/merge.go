package query

import "github.com/rpattn/dataql/internal/domain"

// mergeForward writes the values fq reached from each row under the row's
// table__field key.
func mergeForward(rows []domain.Row, fq forwardQuery, reach reachMap) {
	out := fq.key.Output()
	for _, row := range rows {
		var values []any
		if base := row[fq.baseKey]; base != nil {
			values = reach[domain.KeyOf(base)]
		}
		row[out] = collapse(values)
	}
}

// collapse unwraps a single value. No value gives an empty list and several
// values stay a list.
func collapse(values []any) any {
	switch len(values) {
	case 0:
		return []any{}
	case 1:
		return values[0]
	}
	return append([]any(nil), values...)
}
