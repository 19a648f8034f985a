package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/rpattn/dataql/internal/domain"
)

type operatorFunc func(column string, value any) (domain.Condition, error)

// ruleOperators is the closed set of rule key prefixes.
var ruleOperators = map[string]operatorFunc{
	"":          equality,
	"fuzzy":     likeWith(func(s string) string { return "%" + s + "%" }),
	"lfuzzy":    likeWith(func(s string) string { return "%" + s }),
	"rfuzzy":    likeWith(func(s string) string { return s + "%" }),
	"and_fuzzy": andFuzzy,
	"btw":       between,
	"ge":        compare(domain.OpGE),
	"gt":        compare(domain.OpGT),
	"lt":        compare(domain.OpLT),
	"le":        compare(domain.OpLE),
	"neq":       compare(domain.OpNEQ),
}

// IsOperator reports whether op is a known rule prefix.
func IsOperator(op string) bool {
	_, ok := ruleOperators[op]
	return ok
}

func compileCondition(op, column string, value any) (domain.Condition, error) {
	fn, ok := ruleOperators[op]
	if !ok {
		return nil, domain.ParamErrorf("unsupported operator %s", op)
	}
	return fn(column, domain.NormalizeValue(value))
}

var fuzzyEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeFuzzy escapes LIKE wildcards so the value matches literally.
func escapeFuzzy(s string) string {
	return fuzzyEscaper.Replace(s)
}

func equality(column string, value any) (domain.Condition, error) {
	if list, ok := asList(value); ok {
		return domain.InOrNoMatch(column, list), nil
	}
	return domain.Eq{Field: column, Value: value}, nil
}

func likeWith(wrap func(string) string) operatorFunc {
	return func(column string, value any) (domain.Condition, error) {
		s, err := scalarString(column, value)
		if err != nil {
			return nil, err
		}
		return domain.Like{Field: column, Pattern: wrap(escapeFuzzy(s))}, nil
	}
}

func andFuzzy(column string, value any) (domain.Condition, error) {
	s, err := scalarString(column, value)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, "|")
	patterns := make([]string, len(parts))
	for i, p := range parts {
		patterns[i] = "%" + escapeFuzzy(strings.TrimSpace(p)) + "%"
	}
	return domain.LikeAll{Field: column, Patterns: patterns}, nil
}

func between(column string, value any) (domain.Condition, error) {
	list, ok := asList(value)
	if !ok || len(list) != 2 {
		return nil, domain.ParamErrorf("btw on %s expects [low, high]", column)
	}
	return domain.Between{Field: column, Low: list[0], High: list[1]}, nil
}

func compare(op domain.CompareOp) operatorFunc {
	return func(column string, value any) (domain.Condition, error) {
		if _, isList := asList(value); isList || value == nil {
			return nil, domain.ParamErrorf("%s on %s expects a scalar", op, column)
		}
		return domain.Compare{Field: column, Op: op, Value: value}, nil
	}
}

func scalarString(column string, value any) (string, error) {
	if _, isList := asList(value); isList || value == nil {
		return "", domain.ParamErrorf("fuzzy match on %s expects a scalar", column)
	}
	return fmt.Sprint(value), nil
}

// asList converts any slice except []byte into []any.
func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []byte, string, nil:
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = domain.NormalizeValue(rv.Index(i).Interface())
	}
	return out, true
}
