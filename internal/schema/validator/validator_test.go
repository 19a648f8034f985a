package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rpattn/dataql/internal/domain"
)

func table(name string, fields map[string]domain.FieldDef, order ...string) domain.TableSchema {
	return domain.TableSchema{Name: name, Fields: fields, Order: order}
}

func TestValidateTables(t *testing.T) {
	known := func(name string) bool { return name == "split" }

	tests := []struct {
		name    string
		tables  []domain.TableSchema
		wantErr bool
	}{
		{
			name: "valid",
			tables: []domain.TableSchema{table("user", map[string]domain.FieldDef{
				"id":   {Type: "int"},
				"tags": {Type: "str", OutputFunc: "split"},
			}, "id", "tags")},
		},
		{
			name:    "bad table name",
			tables:  []domain.TableSchema{table("user-info", nil)},
			wantErr: true,
		},
		{
			name: "bad field name",
			tables: []domain.TableSchema{table("user", map[string]domain.FieldDef{
				"first name": {Type: "str"},
			}, "first name")},
			wantErr: true,
		},
		{
			name: "missing type",
			tables: []domain.TableSchema{table("user", map[string]domain.FieldDef{
				"id": {},
			}, "id")},
			wantErr: true,
		},
		{
			name: "relate target with bad field",
			tables: []domain.TableSchema{table("bind", map[string]domain.FieldDef{
				"user_id": {Type: "int", Relate: domain.Relations{"user.id;"}},
			}, "user_id")},
			wantErr: true,
		},
		{
			name: "unknown input func",
			tables: []domain.TableSchema{table("user", map[string]domain.FieldDef{
				"name": {Type: "str", InputFunc: "md5"},
			}, "name")},
			wantErr: true,
		},
		{
			name: "unknown output func",
			tables: []domain.TableSchema{table("user", map[string]domain.FieldDef{
				"name": {Type: "str", OutputFunc: "upper"},
			}, "name")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTables(tt.tables, known)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, domain.IsKind(err, domain.KindSchema), "got %v", err)
		})
	}
}

func TestValidateTablesWithoutLookup(t *testing.T) {
	err := ValidateTables([]domain.TableSchema{table("user", map[string]domain.FieldDef{
		"name": {Type: "str", OutputFunc: "cap"},
	}, "name")}, nil)
	assert.True(t, domain.IsKind(err, domain.KindSchema))
}
