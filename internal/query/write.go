package query

import (
	"context"
	"sort"

	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/repository"
)

// Create inserts the request rows. Declared input_func conversions run first,
// then the before hooks; the after hooks see the inserted rows.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (repository.InsertResult, error) {
	if err := req.Validate(); err != nil {
		return repository.InsertResult{}, err
	}
	if !domain.ValidIdentifier(req.Object) {
		return repository.InsertResult{}, domain.ParamErrorf("illegal object %s", req.Object)
	}
	e, err := s.newEngine(ctx, req.Namespace)
	if err != nil {
		return repository.InsertResult{}, err
	}
	before, err := s.hooks.ResolveRows(req.Setting.Before)
	if err != nil {
		return repository.InsertResult{}, err
	}
	after, err := s.hooks.ResolveRows(req.Setting.After)
	if err != nil {
		return repository.InsertResult{}, err
	}

	rows := make([]domain.Row, len(req.Data))
	for i, data := range req.Data {
		row, err := s.applyInputFuncs(req.Object, data)
		if err != nil {
			return repository.InsertResult{}, err
		}
		rows[i] = row
	}
	for _, hook := range before {
		if err := hook(ctx, rows); err != nil {
			return repository.InsertResult{}, err
		}
	}

	res, err := e.store.Insert(ctx, req.Object, rows)
	if err != nil {
		return repository.InsertResult{}, backendError(err)
	}
	e.logger.InfoContext(ctx, "create", "object", req.Object, "rows", res.RowsAffected, "last_insert_id", res.LastInsertID)

	for _, hook := range after {
		if err := hook(ctx, rows); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Update sets the request data on the rows matching setting.by and returns
// the number of affected rows.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if !domain.ValidIdentifier(req.Object) {
		return 0, domain.ParamErrorf("illegal object %s", req.Object)
	}
	e, err := s.newEngine(ctx, req.Namespace)
	if err != nil {
		return 0, err
	}

	values, err := s.applyInputFuncs(req.Object, req.Data)
	if err != nil {
		return 0, err
	}

	columns := make([]string, 0, len(req.Setting.By))
	for column := range req.Setting.By {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	where := make([]domain.Condition, 0, len(columns))
	for _, column := range columns {
		if !domain.ValidIdentifier(column) {
			return 0, domain.ParamErrorf("illegal key %s", column)
		}
		cond, err := compileCondition("", column, req.Setting.By[column])
		if err != nil {
			return 0, err
		}
		where = append(where, cond)
	}

	n, err := e.store.Update(ctx, req.Object, values, where)
	if err != nil {
		return 0, backendError(err)
	}
	e.logger.InfoContext(ctx, "update", "object", req.Object, "rows", n)
	return n, nil
}

func (s *Service) applyInputFuncs(object string, data domain.Row) (domain.Row, error) {
	row := make(domain.Row, len(data))
	for k, v := range data {
		row[k] = domain.NormalizeValue(v)
	}
	table, ok := s.graph.Table(object)
	if !ok {
		return row, nil
	}
	for k, v := range row {
		def, ok := table.Field(k)
		if !ok || def.InputFunc == "" {
			continue
		}
		converted, err := s.hooks.ApplyField(def.InputFunc, v)
		if err != nil {
			if _, ok := domain.AsError(err); ok {
				return nil, err
			}
			return nil, &domain.Error{Kind: domain.KindParam, Code: domain.CodeDataError, Message: "convert " + k, Err: err}
		}
		row[k] = converted
	}
	return row, nil
}

// FieldMeta describes one declared field.
type FieldMeta struct {
	Code        string   `json:"code"`
	Type        string   `json:"type"`
	Relate      []string `json:"relate,omitempty"`
	InputFunc   string   `json:"input_func,omitempty"`
	OutputFunc  string   `json:"output_func,omitempty"`
	Description string   `json:"descr,omitempty"`
}

// TableMeta describes one declared table.
type TableMeta struct {
	Name   string      `json:"name"`
	Fields []FieldMeta `json:"fields"`
}

// Meta describes req.Object, or lists the declared tables when no object is
// given.
func (s *Service) Meta(ctx context.Context, req domain.MetaRequest) (any, error) {
	if req.Namespace == "" {
		return nil, domain.ParamErrorf("missing required param namespace")
	}
	if _, err := s.stores.Get(req.Namespace); err != nil {
		return nil, err
	}
	if req.Object == "" {
		return s.graph.Tables(), nil
	}
	return s.Describe(req.Object)
}

// Describe returns the declaration of a table, fields in declaration order.
func (s *Service) Describe(object string) (TableMeta, error) {
	table, ok := s.graph.Table(object)
	if !ok {
		return TableMeta{}, domain.ParamErrorf("table %s not declared", object)
	}
	meta := TableMeta{Name: table.DisplayName(), Fields: make([]FieldMeta, 0, len(table.Order))}
	for _, name := range table.Order {
		def := table.Fields[name]
		meta.Fields = append(meta.Fields, FieldMeta{
			Code:        name,
			Type:        def.Type,
			Relate:      def.Relate,
			InputFunc:   def.InputFunc,
			OutputFunc:  def.OutputFunc,
			Description: def.Description,
		})
	}
	return meta, nil
}
