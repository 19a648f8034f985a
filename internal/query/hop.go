package query

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/repository"
)

// Hop is one two-table lookup on a namespace. It is the cache key of the
// per-request hop loader.
type Hop struct {
	Namespace string
	Join      repository.JoinQuery
}

// String returns the canonical signature of the hop: two hops with the same
// signature return the same rows.
func (h Hop) String() string {
	fields := append([]string(nil), h.Join.Fields...)
	sort.Strings(fields)

	conds := make([]string, len(h.Join.Where))
	for i, c := range h.Join.Where {
		conds[i] = conditionSignature(c)
	}
	sort.Strings(conds)

	return strings.Join([]string{
		h.Namespace,
		h.Join.Left,
		h.Join.Right,
		h.Join.LeftOn + "=" + h.Join.RightOn,
		strings.Join(fields, ","),
		strings.Join(conds, "&"),
	}, "|")
}

// Raw implements dataloader.Key.
func (h Hop) Raw() any {
	return h
}

func valueSignature(v any) string {
	v = domain.NormalizeValue(v)
	return fmt.Sprintf("%T:%v", v, v)
}

func conditionSignature(c domain.Condition) string {
	switch v := c.(type) {
	case domain.Eq:
		return v.Field + "=" + valueSignature(v.Value)
	case domain.In:
		items := make([]string, len(v.Values))
		for i, item := range v.Values {
			items[i] = valueSignature(item)
		}
		sort.Strings(items)
		return v.Field + " in(" + strings.Join(items, ",") + ")"
	case domain.Like:
		return v.Field + " like " + v.Pattern
	case domain.LikeAll:
		return v.Field + " like all(" + strings.Join(v.Patterns, ",") + ")"
	case domain.Between:
		return v.Field + " btw(" + valueSignature(v.Low) + "," + valueSignature(v.High) + ")"
	case domain.Compare:
		return v.Field + string(v.Op) + valueSignature(v.Value)
	case domain.NoMatch:
		return v.Field + " nomatch"
	}
	return fmt.Sprintf("%T%v", c, c)
}

// HopLoader runs hops against the row stores of a registry and remembers the
// result of every distinct hop. It lives for one request.
type HopLoader struct {
	loader *dataloader.Loader
}

// NewHopLoader creates a loader backed by stores.
func NewHopLoader(stores repository.Registry, logger *slog.Logger) *HopLoader {
	if logger == nil {
		logger = slog.Default()
	}
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))
		for i, key := range keys {
			hop := key.Raw().(Hop)
			store, err := stores.Get(hop.Namespace)
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			rows, err := store.SelectJoin(ctx, hop.Join)
			results[i] = &dataloader.Result{Data: rows, Error: err}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn,
		dataloader.WithCache(dataloader.NewCache()),
		dataloader.WithBatchCapacity(1),
		dataloader.WithTracer(hopTracer{logger: logger}),
	)
	return &HopLoader{loader: loader}
}

// Run returns the rows of hop. The returned rows are shared with later
// callers asking for the same hop and must not be modified.
func (l *HopLoader) Run(ctx context.Context, hop Hop) ([]domain.Row, error) {
	data, err := l.loader.Load(ctx, hop)()
	if err != nil {
		return nil, err
	}
	rows, _ := data.([]domain.Row)
	return rows, nil
}

type hopTracer struct {
	logger *slog.Logger
}

func (t hopTracer) TraceLoad(ctx context.Context, key dataloader.Key) (context.Context, dataloader.TraceLoadFinishFunc) {
	return ctx, func(dataloader.Thunk) {}
}

func (t hopTracer) TraceLoadMany(ctx context.Context, keys dataloader.Keys) (context.Context, dataloader.TraceLoadManyFinishFunc) {
	return ctx, func(dataloader.ThunkMany) {}
}

func (t hopTracer) TraceBatch(ctx context.Context, keys dataloader.Keys) (context.Context, dataloader.TraceBatchFinishFunc) {
	for _, key := range keys {
		t.logger.DebugContext(ctx, "run hop", "hop", key.String())
	}
	return ctx, func([]*dataloader.Result) {}
}

type hopLoaderKey struct{}

// WithHopLoader stores a request scoped hop loader in ctx.
func WithHopLoader(ctx context.Context, l *HopLoader) context.Context {
	return context.WithValue(ctx, hopLoaderKey{}, l)
}

// HopLoaderFromContext retrieves the hop loader stored by WithHopLoader.
func HopLoaderFromContext(ctx context.Context) *HopLoader {
	if l, ok := ctx.Value(hopLoaderKey{}).(*HopLoader); ok {
		return l
	}
	return nil
}
