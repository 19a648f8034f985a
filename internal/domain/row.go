package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Row is one record as a column → value mapping.
type Row map[string]any

// NormalizeValue maps driver and decoder specific representations onto a
// small canonical set so values coming from different queries compare equal.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = NormalizeValue(item)
		}
		return out
	case Row:
		out := make(Row, len(x))
		for k, item := range x {
			out[k] = NormalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = NormalizeValue(item)
		}
		return out
	}
	return v
}

// KeyOf returns a representation of v that is safe to use as a map key.
func KeyOf(v any) any {
	v = NormalizeValue(v)
	if v == nil {
		return nil
	}
	if !reflect.TypeOf(v).Comparable() {
		return fmt.Sprint(v)
	}
	return v
}
