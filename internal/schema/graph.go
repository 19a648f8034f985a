// Package schema builds the relation graph over declared tables and answers
// join path questions against it. A Graph is built once at startup and is
// read-only afterwards; it is safe for concurrent use.
package schema

import (
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/rpattn/dataql/internal/domain"
)

const defaultPathCacheSize = 1024

// Edge is the payload of a relation between two tables: for each side, the
// qualified column taking part in the join.
type Edge struct {
	sides map[string]string
}

// Side returns the qualified "table.field" column on table's side.
func (e Edge) Side(table string) string {
	return e.sides[table]
}

// Column returns the bare field name on table's side.
func (e Edge) Column(table string) string {
	_, field := SplitQualified(e.sides[table])
	return field
}

type pairKey struct {
	a, b string
}

func newPairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// Graph holds the declared tables and the undirected relations between them.
type Graph struct {
	tables    map[string]domain.TableSchema
	names     []string
	ids       map[string]int64
	g         *simple.UndirectedGraph
	edges     map[pairKey]Edge
	neighbors map[string][]string
	paths     *lru.Cache[[2]string, JoinPath]
}

// Build creates the graph from the full set of declarations. Every relate
// target must name a declared table. Several relations between the same pair
// of tables collapse into one edge; the last declared one wins.
func Build(tables []domain.TableSchema) (*Graph, error) {
	gr := &Graph{
		tables:    make(map[string]domain.TableSchema, len(tables)),
		ids:       make(map[string]int64, len(tables)),
		g:         simple.NewUndirectedGraph(),
		edges:     make(map[pairKey]Edge),
		neighbors: make(map[string][]string, len(tables)),
	}

	for i, t := range tables {
		if t.Name == "" {
			return nil, domain.SchemaErrorf("table declaration %d has no %s", i, domain.TableNameKey)
		}
		if _, dup := gr.tables[t.Name]; dup {
			return nil, domain.SchemaErrorf("table %s declared twice", t.Name)
		}
		id := int64(i)
		gr.tables[t.Name] = t
		gr.names = append(gr.names, t.Name)
		gr.ids[t.Name] = id
		gr.g.AddNode(simple.Node(id))
	}

	for _, t := range tables {
		for _, fieldName := range t.Order {
			def := t.Fields[fieldName]
			for _, target := range def.Relate {
				rel, err := domain.ParseRelation(target)
				if err != nil {
					return nil, err
				}
				if _, ok := gr.tables[rel.Table]; !ok {
					return nil, domain.SchemaErrorf("relation %s.%s -> %s names undeclared table %s", t.Name, fieldName, target, rel.Table)
				}
				// Same-table keys never join, so self-relations add no edge.
				if rel.Table == t.Name {
					continue
				}
				gr.g.SetEdge(simple.Edge{F: simple.Node(gr.ids[t.Name]), T: simple.Node(gr.ids[rel.Table])})
				gr.edges[newPairKey(t.Name, rel.Table)] = Edge{sides: map[string]string{
					t.Name:    t.Name + "." + fieldName,
					rel.Table: rel.Qualified(),
				}}
			}
		}
	}

	for _, name := range gr.names {
		nodes := gr.g.From(gr.ids[name])
		var adjacent []string
		for nodes.Next() {
			adjacent = append(adjacent, gr.names[nodes.Node().ID()])
		}
		sort.Strings(adjacent)
		gr.neighbors[name] = adjacent
	}

	cache, err := lru.New[[2]string, JoinPath](defaultPathCacheSize)
	if err != nil {
		return nil, err
	}
	gr.paths = cache

	return gr, nil
}

// Tables lists the table names in declaration order.
func (gr *Graph) Tables() []string {
	out := make([]string, len(gr.names))
	copy(out, gr.names)
	return out
}

// Table returns a table declaration.
func (gr *Graph) Table(name string) (domain.TableSchema, bool) {
	t, ok := gr.tables[name]
	return t, ok
}

// Has reports whether name is a declared table.
func (gr *Graph) Has(name string) bool {
	_, ok := gr.tables[name]
	return ok
}

// Edge returns the relation between a and b.
func (gr *Graph) Edge(a, b string) (Edge, bool) {
	ida, oka := gr.ids[a]
	idb, okb := gr.ids[b]
	if !oka || !okb || !gr.g.HasEdgeBetween(ida, idb) {
		return Edge{}, false
	}
	e, ok := gr.edges[newPairKey(a, b)]
	return e, ok
}

// Neighbors returns the tables directly related to name, sorted.
func (gr *Graph) Neighbors(name string) []string {
	return gr.neighbors[name]
}
