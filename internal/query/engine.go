package query

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/hooks"
	"github.com/rpattn/dataql/internal/logging"
	"github.com/rpattn/dataql/internal/repository"
	"github.com/rpattn/dataql/internal/schema"
)

const defaultPageSize = 10

// Options tunes response shaping.
type Options struct {
	PageNames   domain.PageNames
	DefaultSize int
	// MaxSize caps the page size of paginated queries; zero means no cap.
	MaxSize int
	Logger  *slog.Logger
}

// Service answers requests against the schema graph and the namespace
// stores. It is safe for concurrent use; every call runs on its own engine.
type Service struct {
	graph  *schema.Graph
	stores repository.Registry
	hooks  *hooks.Registry
	opts   Options
}

// NewService wires a service. The graph and the hook registry must not be
// modified afterwards.
func NewService(graph *schema.Graph, stores repository.Registry, hookRegistry *hooks.Registry, opts Options) *Service {
	if opts.PageNames == (domain.PageNames{}) {
		opts.PageNames = domain.DefaultPageNames()
	}
	if opts.DefaultSize <= 0 {
		opts.DefaultSize = defaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if hookRegistry == nil {
		hookRegistry = hooks.NewRegistry()
	}
	return &Service{graph: graph, stores: stores, hooks: hookRegistry, opts: opts}
}

// Graph returns the schema graph the service answers against.
func (s *Service) Graph() *schema.Graph {
	return s.graph
}

// PageNames returns the envelope names of paginated responses.
func (s *Service) PageNames() domain.PageNames {
	return s.opts.PageNames
}

// Result is the outcome of a query before it is shaped for the transport.
type Result struct {
	Rows []domain.Row
	One  bool
	Page *domain.Page
}

// Data shapes the result: the page envelope, a single row or the row list.
func (r *Result) Data(names domain.PageNames) any {
	switch {
	case r.Page != nil:
		return r.Page.Envelope(names)
	case r.One:
		if len(r.Rows) == 0 {
			return domain.Row{}
		}
		return r.Rows[0]
	case r.Rows == nil:
		return []domain.Row{}
	}
	return r.Rows
}

// engine holds the state of a single request.
type engine struct {
	svc       *Service
	namespace string
	store     repository.RowStore
	hops      *HopLoader
	logger    *slog.Logger
}

func (s *Service) newEngine(ctx context.Context, namespace string) (*engine, error) {
	store, err := s.stores.Get(namespace)
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx, s.opts.Logger).With("namespace", namespace)
	hops := HopLoaderFromContext(ctx)
	if hops == nil {
		hops = NewHopLoader(s.stores, logger)
	}
	return &engine{svc: s, namespace: namespace, store: store, hops: hops, logger: logger}, nil
}

func (e *engine) hop(ctx context.Context, jq repository.JoinQuery) ([]domain.Row, error) {
	rows, err := e.hops.Run(ctx, Hop{Namespace: e.namespace, Join: jq})
	if err != nil {
		return nil, backendError(err)
	}
	return rows, nil
}

// backendError leaves engine errors alone and classifies store failures.
func backendError(err error) error {
	if _, ok := domain.AsError(err); ok {
		return err
	}
	return domain.BackendError(err, errors.Is(err, repository.ErrTableNotFound))
}

// Query runs a read request.
func (s *Service) Query(ctx context.Context, req domain.QueryRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	e, err := s.newEngine(ctx, req.Namespace)
	if err != nil {
		return nil, err
	}
	return e.query(ctx, req)
}

func (e *engine) query(ctx context.Context, req domain.QueryRequest) (*Result, error) {
	start := time.Now()
	primary := req.Object
	if !domain.ValidIdentifier(primary) {
		return nil, domain.ParamErrorf("illegal object %s", primary)
	}
	after, err := e.svc.hooks.ResolveRows(req.Setting.After)
	if err != nil {
		return nil, err
	}

	rules, err := compileRules(e.svc.graph, req.Rule, primary)
	if err != nil {
		return nil, err
	}
	fields, err := compileFields(e.svc.graph, req.Field, primary, e.svc.hooks.HasField)
	if err != nil {
		return nil, err
	}
	orderBy, err := parseOrderBy(req.Setting.OrderBy)
	if err != nil {
		return nil, err
	}

	where := rules.direct
	if len(rules.back) > 0 {
		keyFilters, err := e.resolveBack(ctx, rules.back)
		if err != nil {
			return nil, err
		}
		where = append(where, keyFilters...)
	}

	selectFields, extra := fields.selectList()
	q := repository.SelectQuery{Table: primary, Fields: selectFields, Where: where, OrderBy: orderBy}

	result := &Result{One: req.Setting.One}
	var rows []domain.Row
	switch {
	case req.Setting.Pagination:
		size := e.svc.pageSize(req.Setting.Size)
		total, err := e.store.Count(ctx, q)
		if err != nil {
			return nil, backendError(err)
		}
		result.Page = &domain.Page{
			TotalCount: total,
			TotalPage:  (total + int64(size) - 1) / int64(size),
			PageNo:     req.Setting.Page + 1,
			PageSize:   size,
		}
		if total > 0 {
			q.Limit = size
			q.Offset = req.Setting.Page * size
			rows, err = e.store.Select(ctx, q)
		}
		if err != nil {
			return nil, backendError(err)
		}
	case req.Setting.One:
		q.Limit = 1
		if rows, err = e.store.Select(ctx, q); err != nil {
			return nil, backendError(err)
		}
	default:
		if rows, err = e.store.Select(ctx, q); err != nil {
			return nil, backendError(err)
		}
	}
	if rows == nil {
		rows = []domain.Row{}
	}

	if err := e.runForward(ctx, fields.forward, rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		for _, column := range extra {
			delete(row, column)
		}
	}
	if err := e.applyOutputFuncs(primary, fields, rows); err != nil {
		return nil, err
	}
	for _, hook := range after {
		if err := hook(ctx, rows); err != nil {
			return nil, err
		}
	}

	result.Rows = rows
	if result.Page != nil {
		result.Page.List = rows
	}
	e.logger.InfoContext(ctx, "query",
		"object", primary,
		"rows", len(rows),
		"back_queries", len(rules.back),
		"forward_queries", len(fields.forward),
		"duration", time.Since(start))
	return result, nil
}

func (s *Service) pageSize(requested int) int {
	size := requested
	if size <= 0 {
		size = s.opts.DefaultSize
	}
	if s.opts.MaxSize > 0 && size > s.opts.MaxSize {
		size = s.opts.MaxSize
	}
	return size
}

// parseOrderBy reads "field" and "-field" terms.
func parseOrderBy(terms []string) ([]repository.Order, error) {
	orders := make([]repository.Order, 0, len(terms))
	for _, term := range terms {
		name, desc := strings.CutPrefix(strings.TrimSpace(term), "-")
		if !domain.ValidIdentifier(name) {
			return nil, domain.ParamErrorf("illegal order_by %s", term)
		}
		orders = append(orders, repository.Order{Field: name, Desc: desc})
	}
	return orders, nil
}

// applyOutputFuncs runs the declared output_func of every returned field and
// then the field function named by the key's prefix.
func (e *engine) applyOutputFuncs(primary string, fields compiledFields, rows []domain.Row) error {
	keys := append([]Key(nil), fields.direct...)
	for _, fq := range fields.forward {
		keys = append(keys, fq.key)
	}
	if fields.all {
		if table, ok := e.svc.graph.Table(primary); ok {
			covered := make(map[string]bool, len(keys))
			for _, k := range keys {
				covered[k.Output()] = true
			}
			for _, name := range table.Order {
				if !covered[name] && table.Fields[name].OutputFunc != "" {
					keys = append(keys, Key{Table: primary, Field: name})
				}
			}
		}
	}

	for _, key := range keys {
		var funcs []string
		if table, ok := e.svc.graph.Table(key.Table); ok {
			if def, ok := table.Field(key.Field); ok && def.OutputFunc != "" {
				funcs = append(funcs, def.OutputFunc)
			}
		}
		if key.Op != "" {
			funcs = append(funcs, key.Op)
		}
		if len(funcs) == 0 {
			continue
		}

		out := key.Output()
		for _, row := range rows {
			v, ok := row[out]
			if !ok {
				continue
			}
			for _, name := range funcs {
				converted, err := e.svc.hooks.ApplyField(name, v)
				if err != nil {
					if _, ok := domain.AsError(err); ok {
						return err
					}
					return &domain.Error{Kind: domain.KindParam, Code: domain.CodeDataError, Message: "convert " + out, Err: err}
				}
				v = converted
			}
			row[out] = v
		}
	}
	return nil
}
