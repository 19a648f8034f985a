package domain

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Reserved keys of a table declaration.
const (
	TableNameKey  = "_name"
	TableDescrKey = "_name_descr"
)

// FieldDef declares one column. Only fields with Relate contribute edges to
// the schema graph.
type FieldDef struct {
	Type        string    `yaml:"type" json:"type"`
	Relate      Relations `yaml:"relate,omitempty" json:"relate,omitempty"`
	InputFunc   string    `yaml:"input_func,omitempty" json:"input_func,omitempty"`
	OutputFunc  string    `yaml:"output_func,omitempty" json:"output_func,omitempty"`
	Description string    `yaml:"descr,omitempty" json:"descr,omitempty"`
}

// UnmarshalYAML accepts either a bare type tag or a descriptor mapping.
func (f *FieldDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Type = node.Value
		return nil
	}
	type plain FieldDef
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*f = FieldDef(p)
	return nil
}

// Relations is the relate target list; a single "table.field" string is
// accepted as a one element list.
type Relations []string

func (r *Relations) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*r = Relations{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*r = items
		return nil
	}
	return fmt.Errorf("line %d: relate must be a string or a list of strings", node.Line)
}

// Relation is a parsed relate target.
type Relation struct {
	Table string
	Field string
}

// Qualified returns "table.field".
func (r Relation) Qualified() string {
	return r.Table + "." + r.Field
}

// ParseRelation splits "table.field".
func ParseRelation(s string) (Relation, error) {
	table, field, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok || table == "" || field == "" || strings.Contains(field, ".") {
		return Relation{}, SchemaErrorf("relation %q must have the form table.field", s)
	}
	return Relation{Table: table, Field: field}, nil
}

// TableSchema is one declared table.
type TableSchema struct {
	Name        string
	Description string
	Fields      map[string]FieldDef
	// Order keeps the declaration order of Fields.
	Order []string
}

// UnmarshalYAML decodes the flat declaration form:
//
//	_name: user_role_bind
//	id: int
//	user_id: {type: int, relate: user.id}
func (t *TableSchema) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: table declaration must be a mapping", node.Line)
	}
	t.Fields = make(map[string]FieldDef)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]
		switch key {
		case TableNameKey:
			t.Name = value.Value
		case TableDescrKey:
			t.Description = value.Value
		default:
			var def FieldDef
			if err := value.Decode(&def); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
			if _, dup := t.Fields[key]; !dup {
				t.Order = append(t.Order, key)
			}
			t.Fields[key] = def
		}
	}
	return nil
}

// DisplayName returns the description, falling back to the table name.
func (t TableSchema) DisplayName() string {
	if t.Description != "" {
		return t.Description
	}
	return t.Name
}

// Field returns the declaration of name.
func (t TableSchema) Field(name string) (FieldDef, bool) {
	def, ok := t.Fields[name]
	return def, ok
}
