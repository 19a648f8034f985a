package query

import (
	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/schema"
)

const allFields = "*"

// forwardQuery attaches a field of another table to the primary rows. Path
// runs from the primary object to the table owning the field; baseKey is the
// primary column the first hop joins on.
type forwardQuery struct {
	key     Key
	path    schema.JoinPath
	baseKey string
}

type compiledFields struct {
	all     bool
	direct  []Key
	forward []forwardQuery
}

// selectList returns the primary columns to read, including the join columns
// forward queries need, and the join columns that were not asked for.
func (c compiledFields) selectList() (fields []string, extra []string) {
	if c.all {
		return nil, nil
	}
	seen := make(map[string]bool)
	for _, k := range c.direct {
		if !seen[k.Field] {
			seen[k.Field] = true
			fields = append(fields, k.Field)
		}
	}
	for _, fq := range c.forward {
		if !seen[fq.baseKey] {
			seen[fq.baseKey] = true
			fields = append(fields, fq.baseKey)
			extra = append(extra, fq.baseKey)
		}
	}
	return fields, extra
}

// compileFields splits the requested fields into primary columns and forward
// queries. A key's op names a field function and must be registered.
func compileFields(gr *schema.Graph, fields []string, primary string, hasFunc func(string) bool) (compiledFields, error) {
	out := compiledFields{all: len(fields) == 0}
	for _, raw := range fields {
		if raw == allFields {
			out.all = true
			continue
		}
		key := ParseKey(raw, primary)
		if err := key.validate(); err != nil {
			return compiledFields{}, err
		}
		if key.Op != "" && !hasFunc(key.Op) {
			return compiledFields{}, domain.ParamErrorf("field func %s not existed", key.Op)
		}

		if !key.Foreign {
			out.direct = append(out.direct, key)
			continue
		}

		path, err := gr.ShortestPath(primary, key.Table)
		if err != nil {
			return compiledFields{}, err
		}
		edge, _ := gr.Edge(path[0], path[1])
		out.forward = append(out.forward, forwardQuery{
			key:     key,
			path:    path,
			baseKey: edge.Column(primary),
		})
	}
	return out, nil
}
