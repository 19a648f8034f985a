package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/testutil"
)

func allFuncs(string) bool { return true }

func rbacGraph(t *testing.T) *Graph {
	t.Helper()
	tables, err := Parse([]byte(testutil.RBACSchema))
	require.NoError(t, err)
	gr, err := FromTables(tables, allFuncs)
	require.NoError(t, err)
	return gr
}

func TestParseDeclarations(t *testing.T) {
	tables, err := Parse([]byte(testutil.RBACSchema))
	require.NoError(t, err)
	require.Len(t, tables, 5)

	user := tables[0]
	assert.Equal(t, "user", user.Name)
	assert.Equal(t, "User", user.DisplayName())
	assert.Equal(t, []string{"id", "name", "balance", "tags"}, user.Order)
	assert.Equal(t, "fen2yuan", user.Fields["balance"].OutputFunc)

	bind := tables[2]
	assert.Equal(t, "user_role_bind", bind.DisplayName())
	assert.Equal(t, domain.Relations{"user.id"}, bind.Fields["user_id"].Relate)
}

func TestShortestPathExamples(t *testing.T) {
	gr := rbacGraph(t)

	tests := []struct {
		from, to string
		want     JoinPath
	}{
		{"user", "user", JoinPath{"user"}},
		{"user", "user_role_bind", JoinPath{"user", "user_role_bind"}},
		{"user", "role", JoinPath{"user", "user_role_bind", "role"}},
		{"role", "user", JoinPath{"role", "user_role_bind", "user"}},
		{"user", "perm", JoinPath{"user", "user_role_bind", "role", "role_perm_bind", "perm"}},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			got, err := gr.ShortestPath(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want)-1, got.Hops())
		})
	}
}

func TestShortestPathProperties(t *testing.T) {
	gr := rbacGraph(t)
	for _, a := range gr.Tables() {
		for _, b := range gr.Tables() {
			path, err := gr.ShortestPath(a, b)
			require.NoError(t, err)
			require.NotEmpty(t, path)
			assert.Equal(t, a, path.Source())
			assert.Equal(t, b, path.Target())
			for i := 0; i+1 < len(path); i++ {
				_, ok := gr.Edge(path[i], path[i+1])
				assert.True(t, ok, "%s has no edge %s-%s", path, path[i], path[i+1])
			}

			back, err := gr.ShortestPath(b, a)
			require.NoError(t, err)
			assert.Equal(t, len(path), len(back), "%s vs %s", path, back)
		}
	}
}

func TestShortestPathTieBreak(t *testing.T) {
	tables, err := Parse([]byte(`
- _name: a
  id: int
- _name: c
  id: int
  a_id: {type: int, relate: a.id}
- _name: b
  id: int
  a_id: {type: int, relate: a.id}
- _name: d
  id: int
  b_id: {type: int, relate: b.id}
  c_id: {type: int, relate: c.id}
`))
	require.NoError(t, err)
	gr, err := Build(tables)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		path, err := gr.ShortestPath("a", "d")
		require.NoError(t, err)
		assert.Equal(t, JoinPath{"a", "b", "d"}, path)
	}
	path, err := gr.ShortestPath("d", "a")
	require.NoError(t, err)
	assert.Equal(t, JoinPath{"d", "b", "a"}, path)
}

func TestEdgeSides(t *testing.T) {
	gr := rbacGraph(t)

	edge, ok := gr.Edge("user", "user_role_bind")
	require.True(t, ok)
	assert.Equal(t, "user.id", edge.Side("user"))
	assert.Equal(t, "user_role_bind.user_id", edge.Side("user_role_bind"))
	assert.Equal(t, "user_id", edge.Column("user_role_bind"))

	reversed, ok := gr.Edge("user_role_bind", "user")
	require.True(t, ok)
	assert.Equal(t, edge, reversed)

	_, ok = gr.Edge("user", "role")
	assert.False(t, ok)
	assert.Equal(t, []string{"role_perm_bind", "user_role_bind"}, gr.Neighbors("role"))
}

func TestLastRelationWins(t *testing.T) {
	tables, err := Parse([]byte(`
- _name: account
  id: int
  code: str
- _name: payment
  id: int
  account_id: {type: int, relate: account.id}
  account_code: {type: str, relate: account.code}
`))
	require.NoError(t, err)
	gr, err := Build(tables)
	require.NoError(t, err)

	edge, ok := gr.Edge("account", "payment")
	require.True(t, ok)
	assert.Equal(t, "account.code", edge.Side("account"))
	assert.Equal(t, "payment.account_code", edge.Side("payment"))
}

func TestMultipleRelateTargets(t *testing.T) {
	tables, err := Parse([]byte(`
- _name: shop
  id: int
- _name: warehouse
  id: int
- _name: stock
  id: int
  site_id: {type: int, relate: [shop.id, warehouse.id]}
`))
	require.NoError(t, err)
	gr, err := Build(tables)
	require.NoError(t, err)

	path, err := gr.ShortestPath("shop", "warehouse")
	require.NoError(t, err)
	assert.Equal(t, JoinPath{"shop", "stock", "warehouse"}, path)
}

func TestSelfRelationAddsNoEdge(t *testing.T) {
	tables, err := Parse([]byte(`
- _name: category
  id: int
  parent_id: {type: int, relate: category.id}
- _name: item
  id: int
  category_id: {type: int, relate: category.id}
`))
	require.NoError(t, err)
	gr, err := Build(tables)
	require.NoError(t, err)

	_, ok := gr.Edge("category", "category")
	assert.False(t, ok)
	assert.Equal(t, []string{"item"}, gr.Neighbors("category"))

	path, err := gr.ShortestPath("item", "category")
	require.NoError(t, err)
	assert.Equal(t, JoinPath{"item", "category"}, path)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"undeclared relate target", `
- _name: user_role_bind
  user_id: {type: int, relate: user.id}
`},
		{"duplicate table", `
- _name: user
  id: int
- _name: user
  id: int
`},
		{"malformed relate", `
- _name: user
  id: int
- _name: bind
  user_id: {type: int, relate: user}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = Build(tables)
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindSchema), "got %v", err)
		})
	}
}

func TestShortestPathErrors(t *testing.T) {
	tables, err := Parse([]byte(testutil.RBACSchema + `
- _name: audit
  id: int
`))
	require.NoError(t, err)
	gr, err := Build(tables)
	require.NoError(t, err)

	_, err = gr.ShortestPath("user", "audit")
	assert.True(t, domain.IsKind(err, domain.KindSchema), "got %v", err)

	_, err = gr.ShortestPath("user", "nowhere")
	assert.True(t, domain.IsKind(err, domain.KindSchema), "got %v", err)
}

func TestFromTablesValidatesFuncs(t *testing.T) {
	tables, err := Parse([]byte(testutil.RBACSchema))
	require.NoError(t, err)

	_, err = FromTables(tables, func(name string) bool { return name != "fen2yuan" })
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindSchema))
	assert.Contains(t, err.Error(), "output_func fen2yuan")
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("- [1, 2"))
	assert.True(t, domain.IsKind(err, domain.KindSchema))

	_, err = Parse([]byte("- just a string"))
	assert.Error(t, err)
}
