package hooks

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rpattn/dataql/internal/domain"
)

func builtinFieldFuncs() map[string]FieldFunc {
	return map[string]FieldFunc{
		"default":  identity,
		"fen2yuan": fen2yuan,
		"yuan2fen": yuan2fen,
		"split":    split,
		"loads":    loads,
		"cap":      capitalize,
	}
}

func identity(v any) (any, error) {
	return v, nil
}

// fen2yuan converts an amount in cents to a unit amount rounded to 2 places.
func fen2yuan(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}
	return math.Round(f) / 100, nil
}

func yuan2fen(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}
	return int64(math.Round(f * 100)), nil
}

func split(v any) (any, error) {
	if v == nil {
		return []any{}, nil
	}
	s, ok := domain.NormalizeValue(v).(string)
	if !ok {
		return nil, fmt.Errorf("split expects a string, got %T", v)
	}
	if s == "" {
		return []any{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func loads(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := domain.NormalizeValue(v).(string)
	if !ok {
		return nil, fmt.Errorf("loads expects a string, got %T", v)
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(v any) (any, error) {
	if v == nil {
		return "", nil
	}
	s := fmt.Sprint(domain.NormalizeValue(v))
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s, nil
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:]), nil
}

func toFloat(v any) (float64, error) {
	switch x := domain.NormalizeValue(v).(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
