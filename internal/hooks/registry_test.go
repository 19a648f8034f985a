package hooks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/dataql/internal/domain"
)

func TestBuiltinFieldFuncs(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"cap", "default", "fen2yuan", "loads", "split", "yuan2fen"}, r.FieldNames())

	tests := []struct {
		name string
		fn   string
		in   any
		want any
	}{
		{"default keeps value", "default", "x", "x"},
		{"fen2yuan int", "fen2yuan", int64(1050), 10.5},
		{"fen2yuan json number", "fen2yuan", json.Number("300"), 3.0},
		{"fen2yuan nil", "fen2yuan", nil, nil},
		{"yuan2fen float", "yuan2fen", 10.5, int64(1050)},
		{"yuan2fen string", "yuan2fen", "3", int64(300)},
		{"split list", "split", "a,b", []any{"a", "b"}},
		{"split empty", "split", "", []any{}},
		{"split nil", "split", nil, []any{}},
		{"loads object", "loads", `{"a":1}`, map[string]any{"a": 1.0}},
		{"cap word", "cap", "hELLO", "Hello"},
		{"cap nil", "cap", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ApplyField(tt.fn, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyFieldList(t *testing.T) {
	r := NewRegistry()
	got, err := r.ApplyField("yuan2fen", []any{1.5, "2"})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(150), int64(200)}, got)
}

func TestApplyFieldErrors(t *testing.T) {
	r := NewRegistry()

	_, err := r.ApplyField("missing", 1)
	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.CodeParamError, derr.Code)

	_, err = r.ApplyField("fen2yuan", "abc")
	assert.ErrorContains(t, err, "field func fen2yuan")

	_, err = r.ApplyField("split", []any{int64(1)})
	assert.ErrorContains(t, err, "split expects a string")
}

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.HasField("upper"))
	r.RegisterField("upper", func(v any) (any, error) { return v, nil })
	assert.True(t, r.HasField("upper"))
	_, ok := r.Field("upper")
	assert.True(t, ok)

	var calls []string
	r.RegisterRows("audit", func(_ context.Context, rows []domain.Row) error {
		calls = append(calls, "audit")
		return nil
	})
	r.RegisterRows("stamp", func(_ context.Context, rows []domain.Row) error {
		calls = append(calls, "stamp")
		for _, row := range rows {
			row["stamped"] = true
		}
		return nil
	})
	_, ok = r.Rows("audit")
	assert.True(t, ok)

	resolved, err := r.ResolveRows([]string{"stamp", "audit"})
	require.NoError(t, err)
	rows := []domain.Row{{"id": int64(1)}}
	for _, fn := range resolved {
		require.NoError(t, fn(context.Background(), rows))
	}
	assert.Equal(t, []string{"stamp", "audit"}, calls)
	assert.Equal(t, true, rows[0]["stamped"])

	_, err = r.ResolveRows([]string{"stamp", "ghost"})
	assert.ErrorContains(t, err, "hook ghost not existed")
}
