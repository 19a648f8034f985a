package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/schema/validator"
)

// Parse decodes a list of table declarations. JSON input is accepted as well.
func Parse(data []byte) ([]domain.TableSchema, error) {
	var tables []domain.TableSchema
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, &domain.Error{Kind: domain.KindSchema, Code: domain.CodeDataError, Message: "decode table declarations", Err: err}
	}
	return tables, nil
}

// LoadFile reads and decodes the declarations at path.
func LoadFile(path string) ([]domain.TableSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(data)
}

// FromTables validates declarations against the registered field functions
// and builds the graph.
func FromTables(tables []domain.TableSchema, hasFunc validator.FuncLookup) (*Graph, error) {
	if err := validator.ValidateTables(tables, hasFunc); err != nil {
		return nil, err
	}
	return Build(tables)
}

// Load is LoadFile followed by FromTables.
func Load(path string, hasFunc validator.FuncLookup) (*Graph, error) {
	tables, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return FromTables(tables, hasFunc)
}
