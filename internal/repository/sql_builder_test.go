package repository

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/dataql/internal/domain"
)

func render(query string, args []any) []byte {
	return []byte(fmt.Sprintf("%s\n%v\n", query, args))
}

func pagedUserQuery() SelectQuery {
	return SelectQuery{
		Table:   "user",
		Fields:  []string{"id", "name"},
		Where:   []domain.Condition{domain.In{Field: "id", Values: []any{1, 2}}, domain.Like{Field: "name", Pattern: `%jo\_%`}},
		OrderBy: []Order{{Field: "id", Desc: true}},
		Limit:   10,
		Offset:  20,
	}
}

func TestBuildSelectGolden(t *testing.T) {
	g := goldie.New(t)
	dialects := map[string]Dialect{
		"select_sqlite":   SQLiteDialect,
		"select_postgres": PostgresDialect,
		"select_mysql":    MySQLDialect,
	}
	for name, dialect := range dialects {
		t.Run(name, func(t *testing.T) {
			query, args, err := buildSelect(dialect, pagedUserQuery())
			require.NoError(t, err)
			g.Assert(t, name, render(query, args))
		})
	}
}

func TestBuildSelectLikeAllGolden(t *testing.T) {
	query, args, err := buildSelect(SQLiteDialect, SelectQuery{
		Table: "user",
		Where: []domain.Condition{domain.LikeAll{Field: "name", Patterns: []string{"%a%", "%b%"}}},
	})
	require.NoError(t, err)
	goldie.New(t).Assert(t, "select_like_all", render(query, args))
}

func TestBuildJoinGolden(t *testing.T) {
	query, args, err := buildJoin(SQLiteDialect, JoinQuery{
		Left:    "role",
		Right:   "user_role_bind",
		LeftOn:  "role.id",
		RightOn: "user_role_bind.role_id",
		Fields:  []string{"user_role_bind.user_id"},
		Where:   []domain.Condition{domain.Eq{Field: "role.role_name", Value: "admin"}},
	})
	require.NoError(t, err)
	goldie.New(t).Assert(t, "join_sqlite", render(query, args))
}

func TestBuildCountGolden(t *testing.T) {
	query, args, err := buildCount(SQLiteDialect, SelectQuery{
		Table: "user",
		Where: []domain.Condition{
			domain.NoMatch{Field: "id"},
			domain.Between{Field: "age", Low: 18, High: 30},
			domain.Compare{Field: "age", Op: domain.OpNEQ, Value: 20},
		},
	})
	require.NoError(t, err)
	goldie.New(t).Assert(t, "count_nomatch", render(query, args))
}

func TestBuildInsertGolden(t *testing.T) {
	query, args, err := buildInsert(PostgresDialect, "user", []domain.Row{
		{"name": "a", "age": 1},
		{"name": "b", "age": 2},
	})
	require.NoError(t, err)
	goldie.New(t).Assert(t, "insert_postgres", render(query, args))
}

func TestBuildUpdateGolden(t *testing.T) {
	query, args, err := buildUpdate(MySQLDialect, "user", domain.Row{"name": "c"},
		[]domain.Condition{domain.Eq{Field: "id", Value: 3}})
	require.NoError(t, err)
	goldie.New(t).Assert(t, "update_mysql", render(query, args))
}

func TestBuildJoinSelectsTableRows(t *testing.T) {
	query, args, err := buildJoin(SQLiteDialect, JoinQuery{
		Left:    "user_role_bind",
		Right:   "role",
		LeftOn:  "user_role_bind.role_id",
		RightOn: "role.id",
		Fields:  []string{"user_role_bind.role_id", "role.role_name", "role.*"},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT "user_role_bind"."role_id" AS "user_role_bind.role_id", "role"."role_name" AS "role.role_name", "role".* `+
		`FROM "user_role_bind" INNER JOIN "role" ON "user_role_bind"."role_id" = "role"."id"`, query)
	assert.Empty(t, args)
}

func TestBuilderRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"injected identifier", func() error {
			_, _, err := buildSelect(SQLiteDialect, SelectQuery{Table: "user; drop table user"})
			return err
		}},
		{"three part identifier", func() error {
			_, _, err := buildSelect(SQLiteDialect, SelectQuery{Table: "user", Fields: []string{"a.b.c"}})
			return err
		}},
		{"update without condition", func() error {
			_, _, err := buildUpdate(SQLiteDialect, "user", domain.Row{"name": "x"}, nil)
			return err
		}},
		{"ragged insert", func() error {
			_, _, err := buildInsert(SQLiteDialect, "user", []domain.Row{{"a": 1}, {"b": 2}})
			return err
		}},
		{"empty insert", func() error {
			_, _, err := buildInsert(SQLiteDialect, "user", nil)
			return err
		}},
		{"injected table star", func() error {
			_, _, err := buildJoin(SQLiteDialect, JoinQuery{
				Left: "user", Right: "user_role_bind", LeftOn: "user.id", RightOn: "user_role_bind.user_id",
				Fields: []string{"user.id", "user_role_bind; drop table user.*"},
			})
			return err
		}},
		{"bad comparison", func() error {
			_, _, err := buildSelect(SQLiteDialect, SelectQuery{Table: "user", Where: []domain.Condition{
				domain.Compare{Field: "id", Op: "<>", Value: 1},
			}})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindParam), "got %v", err)
		})
	}
}

func TestEmptyInCompilesToFalse(t *testing.T) {
	query, args, err := buildSelect(SQLiteDialect, SelectQuery{
		Table: "user",
		Where: []domain.Condition{domain.In{Field: "id"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "user" WHERE 1 = 0`, query)
	assert.Empty(t, args)
}

func TestEqNilIsNull(t *testing.T) {
	query, args, err := buildSelect(SQLiteDialect, SelectQuery{
		Table: "user",
		Where: []domain.Condition{domain.Eq{Field: "deleted_at"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "user" WHERE "deleted_at" IS NULL`, query)
	assert.Empty(t, args)
}

func TestDialectFor(t *testing.T) {
	for driver, want := range map[string]Dialect{
		"postgres": PostgresDialect,
		"pgx":      PostgresDialect,
		"MySQL":    MySQLDialect,
		"sqlite3":  SQLiteDialect,
	} {
		got, err := DialectFor(driver)
		require.NoError(t, err, driver)
		assert.Equal(t, want.Name(), got.Name())
	}
	_, err := DialectFor("oracle")
	assert.Error(t, err)
}
