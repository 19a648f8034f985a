package validator

import (
	"strings"

	"github.com/rpattn/dataql/internal/domain"
)

// FuncLookup reports whether a field function name is registered.
type FuncLookup func(name string) bool

// ValidateTables checks table declarations before the graph is built: names
// must be usable identifiers, every field needs a type tag, relate targets
// must be well formed and every input_func/output_func must be registered.
func ValidateTables(tables []domain.TableSchema, hasFunc FuncLookup) error {
	for _, table := range tables {
		if !domain.ValidIdentifier(table.Name) {
			return domain.SchemaErrorf("table name %q is not a valid identifier", table.Name)
		}
		for _, name := range table.Order {
			field := table.Fields[name]
			if !domain.ValidIdentifier(name) {
				return domain.SchemaErrorf("field %s.%s is not a valid identifier", table.Name, name)
			}
			if strings.TrimSpace(field.Type) == "" {
				return domain.SchemaErrorf("field %s.%s has no type", table.Name, name)
			}
			for _, target := range field.Relate {
				rel, err := domain.ParseRelation(target)
				if err != nil {
					return err
				}
				if !domain.ValidIdentifier(rel.Table) || !domain.ValidIdentifier(rel.Field) {
					return domain.SchemaErrorf("field %s.%s relates to invalid target %q", table.Name, name, target)
				}
			}
			if field.InputFunc != "" && (hasFunc == nil || !hasFunc(field.InputFunc)) {
				return domain.SchemaErrorf("field %s.%s uses unknown input_func %s", table.Name, name, field.InputFunc)
			}
			if field.OutputFunc != "" && (hasFunc == nil || !hasFunc(field.OutputFunc)) {
				return domain.SchemaErrorf("field %s.%s uses unknown output_func %s", table.Name, name, field.OutputFunc)
			}
		}
	}
	return nil
}
