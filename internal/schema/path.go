package schema

import (
	"strings"

	"github.com/rpattn/dataql/internal/domain"
)

// JoinPath is the ordered list of tables from a source to a target table.
type JoinPath []string

// Source returns the first table of the path.
func (p JoinPath) Source() string { return p[0] }

// Target returns the last table of the path.
func (p JoinPath) Target() string { return p[len(p)-1] }

// Hops returns the number of joins needed to walk the path.
func (p JoinPath) Hops() int { return len(p) - 1 }

func (p JoinPath) String() string {
	return strings.Join(p, " -> ")
}

// ShortestPath returns a shortest join path between two declared tables.
//
// Neighbours are expanded in lexicographic order and the first path to reach
// the target wins, so among several shortest paths the result is stable for a
// given schema. Results are cached for the life of the graph.
func (gr *Graph) ShortestPath(from, to string) (JoinPath, error) {
	if !gr.Has(from) {
		return nil, domain.SchemaErrorf("table %s not declared", from)
	}
	if !gr.Has(to) {
		return nil, domain.SchemaErrorf("table %s not declared", to)
	}
	key := [2]string{from, to}
	if cached, ok := gr.paths.Get(key); ok {
		return cached, nil
	}

	path := gr.breadthFirst(from, to)
	if path == nil {
		return nil, domain.SchemaErrorf("no relation path between %s and %s", from, to)
	}
	gr.paths.Add(key, path)
	return path, nil
}

func (gr *Graph) breadthFirst(from, to string) JoinPath {
	parent := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == to {
			break
		}
		for _, next := range gr.neighbors[current] {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			queue = append(queue, next)
		}
	}
	if _, reached := parent[to]; !reached {
		return nil
	}

	var reversed []string
	for node := to; node != ""; node = parent[node] {
		reversed = append(reversed, node)
	}
	path := make(JoinPath, len(reversed))
	for i, node := range reversed {
		path[len(reversed)-1-i] = node
	}
	return path
}

// SplitQualified splits "table.field"; a bare name yields an empty table.
func SplitQualified(qualified string) (table, field string) {
	if t, f, ok := strings.Cut(qualified, "."); ok {
		return t, f
	}
	return "", qualified
}
