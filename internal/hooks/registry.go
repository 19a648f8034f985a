// Package hooks holds the named post-processing functions that requests and
// table declarations may refer to. A Registry is populated at startup and only
// read afterwards, so it can be shared by concurrent requests.
package hooks

import (
	"context"
	"fmt"
	"sort"

	"github.com/rpattn/dataql/internal/domain"
)

// FieldFunc transforms a single field value.
type FieldFunc func(v any) (any, error)

// RowsHook inspects or rewrites a batch of rows. Before hooks see the rows of
// a create request, after hooks see the rows of a response.
type RowsHook func(ctx context.Context, rows []domain.Row) error

// Registry maps hook names to implementations.
type Registry struct {
	fields map[string]FieldFunc
	rows   map[string]RowsHook
}

// NewRegistry returns a registry preloaded with the built-in field functions.
func NewRegistry() *Registry {
	r := &Registry{
		fields: make(map[string]FieldFunc),
		rows:   make(map[string]RowsHook),
	}
	for name, fn := range builtinFieldFuncs() {
		r.fields[name] = fn
	}
	return r
}

// RegisterField adds or replaces a field function.
func (r *Registry) RegisterField(name string, fn FieldFunc) {
	r.fields[name] = fn
}

// RegisterRows adds or replaces a rows hook.
func (r *Registry) RegisterRows(name string, fn RowsHook) {
	r.rows[name] = fn
}

// Field looks up a field function.
func (r *Registry) Field(name string) (FieldFunc, bool) {
	fn, ok := r.fields[name]
	return fn, ok
}

// HasField reports whether name is a registered field function.
func (r *Registry) HasField(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Rows looks up a rows hook.
func (r *Registry) Rows(name string) (RowsHook, bool) {
	fn, ok := r.rows[name]
	return fn, ok
}

// FieldNames lists the registered field functions in sorted order.
func (r *Registry) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyField runs the named function over v, elementwise when v is a list.
func (r *Registry) ApplyField(name string, v any) (any, error) {
	fn, ok := r.fields[name]
	if !ok {
		return nil, domain.ParamErrorf("field func %s not existed", name)
	}
	list, isList := v.([]any)
	if !isList {
		out, err := fn(v)
		if err != nil {
			return nil, fmt.Errorf("field func %s: %w", name, err)
		}
		return out, nil
	}
	out := make([]any, len(list))
	for i, item := range list {
		converted, err := fn(item)
		if err != nil {
			return nil, fmt.Errorf("field func %s: %w", name, err)
		}
		out[i] = converted
	}
	return out, nil
}

// ResolveRows maps hook names to implementations, failing on the first
// unknown name.
func (r *Registry) ResolveRows(names []string) ([]RowsHook, error) {
	resolved := make([]RowsHook, 0, len(names))
	for _, name := range names {
		fn, ok := r.rows[name]
		if !ok {
			return nil, domain.ParamErrorf("hook %s not existed", name)
		}
		resolved = append(resolved, fn)
	}
	return resolved, nil
}
