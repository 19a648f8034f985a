package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/repository"
	"github.com/rpattn/dataql/internal/schema"
	"github.com/rpattn/dataql/internal/testutil"
)

func rbacGraph(t *testing.T) *schema.Graph {
	t.Helper()
	tables, err := schema.Parse([]byte(testutil.RBACSchema))
	require.NoError(t, err)
	gr, err := schema.Build(tables)
	require.NoError(t, err)
	return gr
}

func TestCompileRulesSameTable(t *testing.T) {
	rules, err := compileRules(rbacGraph(t), map[string]any{
		"fuzzy.name": "al",
		"id":         []any{1, 2},
		"user__id":   3,
	}, "user")
	require.NoError(t, err)
	assert.Empty(t, rules.back)
	assert.Equal(t, []domain.Condition{
		domain.Like{Field: "name", Pattern: "%al%"},
		domain.In{Field: "id", Values: []any{int64(1), int64(2)}},
		domain.Eq{Field: "id", Value: int64(3)},
	}, rules.direct)
}

func TestCompileRulesMergesBackQueries(t *testing.T) {
	rules, err := compileRules(rbacGraph(t), map[string]any{
		"role__role_name":        "admin",
		"neq.role__id":           2,
		"perm__perm_name":        "read",
		"rfuzzy.perm__perm_name": "wr",
	}, "user")
	require.NoError(t, err)
	assert.Empty(t, rules.direct)
	require.Len(t, rules.back, 2)

	role := rules.back[0]
	assert.Equal(t, schema.JoinPath{"role", "user_role_bind", "user"}, role.path)
	assert.Equal(t, []domain.Condition{
		domain.Compare{Field: "role.id", Op: domain.OpNEQ, Value: int64(2)},
		domain.Eq{Field: "role.role_name", Value: "admin"},
	}, role.where)

	perm := rules.back[1]
	assert.Equal(t, schema.JoinPath{"perm", "role_perm_bind", "role", "user_role_bind", "user"}, perm.path)
	assert.Equal(t, []domain.Condition{
		domain.Eq{Field: "perm.perm_name", Value: "read"},
		domain.Like{Field: "perm.perm_name", Pattern: "wr%"},
	}, perm.where)
}

func TestCompileRulesErrors(t *testing.T) {
	gr := rbacGraph(t)

	_, err := compileRules(gr, map[string]any{"ghost__id": 1}, "user")
	assert.True(t, domain.IsKind(err, domain.KindSchema), "got %v", err)

	_, err = compileRules(gr, map[string]any{"like.name": "x"}, "user")
	assert.True(t, domain.IsKind(err, domain.KindParam), "got %v", err)

	_, err = compileRules(gr, map[string]any{"na-me": "x"}, "user")
	assert.True(t, domain.IsKind(err, domain.KindParam), "got %v", err)
}

func TestCompileFields(t *testing.T) {
	known := func(name string) bool { return name == "cap" }
	fields, err := compileFields(rbacGraph(t), []string{"name", "cap.role__role_name", "perm__perm_name"}, "user", known)
	require.NoError(t, err)

	assert.False(t, fields.all)
	assert.Equal(t, []Key{{Table: "user", Field: "name"}}, fields.direct)
	require.Len(t, fields.forward, 2)
	assert.Equal(t, schema.JoinPath{"user", "user_role_bind", "role"}, fields.forward[0].path)
	assert.Equal(t, "id", fields.forward[0].baseKey)
	assert.Equal(t, "cap", fields.forward[0].key.Op)

	selected, extra := fields.selectList()
	assert.Equal(t, []string{"name", "id"}, selected)
	assert.Equal(t, []string{"id"}, extra)

	_, err = compileFields(rbacGraph(t), []string{"md5.name"}, "user", known)
	assert.True(t, domain.IsKind(err, domain.KindParam), "got %v", err)
}

func TestCompileFieldsAll(t *testing.T) {
	for _, fields := range [][]string{nil, {"*"}, {"*", "role__role_name"}} {
		compiled, err := compileFields(rbacGraph(t), fields, "user", func(string) bool { return true })
		require.NoError(t, err)
		assert.True(t, compiled.all)
		selected, extra := compiled.selectList()
		assert.Nil(t, selected)
		assert.Nil(t, extra)
	}
}

func TestParseOrderBy(t *testing.T) {
	orders, err := parseOrderBy([]string{"id", "-name"})
	require.NoError(t, err)
	assert.Equal(t, []repository.Order{{Field: "id"}, {Field: "name", Desc: true}}, orders)

	_, err = parseOrderBy([]string{"--id"})
	assert.True(t, domain.IsKind(err, domain.KindParam))
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, []any{}, collapse(nil))
	assert.Equal(t, "admin", collapse([]any{"admin"}))
	assert.Equal(t, []any{"a", "b"}, collapse([]any{"a", "b"}))
	assert.Nil(t, collapse([]any{nil}))
}

func TestIntersect(t *testing.T) {
	assert.Equal(t, []any{int64(2)}, intersect([]any{int64(1), int64(2)}, []any{2, 3}))
	assert.Empty(t, intersect([]any{int64(1)}, nil))
}

func TestHopSignatureIsCanonical(t *testing.T) {
	a := Hop{Namespace: "main", Join: joinQuery(
		[]string{"user.id", "user_role_bind.role_id"},
		domain.In{Field: "user.id", Values: []any{1, 2}},
		domain.Eq{Field: "user.name", Value: "x"},
	)}
	b := Hop{Namespace: "main", Join: joinQuery(
		[]string{"user_role_bind.role_id", "user.id"},
		domain.Eq{Field: "user.name", Value: "x"},
		domain.In{Field: "user.id", Values: []any{int64(2), int64(1)}},
	)}
	assert.Equal(t, a.String(), b.String())

	c := Hop{Namespace: "main", Join: joinQuery(
		[]string{"user.id", "user_role_bind.role_id"},
		domain.In{Field: "user.id", Values: []any{"1", "2"}},
		domain.Eq{Field: "user.name", Value: "x"},
	)}
	assert.NotEqual(t, a.String(), c.String())

	d := a
	d.Namespace = "other"
	assert.NotEqual(t, a.String(), d.String())
}

func joinQuery(fields []string, where ...domain.Condition) repository.JoinQuery {
	return repository.JoinQuery{
		Left:    "user",
		Right:   "user_role_bind",
		LeftOn:  "user.id",
		RightOn: "user_role_bind.user_id",
		Fields:  fields,
		Where:   where,
	}
}
