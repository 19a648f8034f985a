// Package query compiles request rules and fields against the schema graph
// and runs the resulting hops on a namespace's row store.
package query

import (
	"strings"

	"github.com/rpattn/dataql/internal/domain"
)

const (
	opSeparator    = "."
	tableSeparator = "__"
)

// Key is a parsed rule or field key of the form [op.][table__]field.
type Key struct {
	Op    string
	Table string
	Field string
	// Foreign is set when Table was given explicitly and differs from the
	// primary object.
	Foreign bool
}

// ParseKey parses raw relative to the primary object. It never fails: a key
// that does not fit the grammar is taken as a plain field name.
func ParseKey(raw, primary string) Key {
	k := Key{Table: primary, Field: raw}

	rest := raw
	if op, tail, ok := strings.Cut(raw, opSeparator); ok {
		if op == "" || tail == "" {
			return k
		}
		k.Op = op
		rest = tail
	}

	if table, field, ok := strings.Cut(rest, tableSeparator); ok && table != "" && field != "" {
		k.Table = table
		k.Field = field
	} else {
		k.Field = rest
	}
	k.Foreign = k.Table != primary
	return k
}

// Qualified returns "table.field".
func (k Key) Qualified() string {
	return k.Table + "." + k.Field
}

// Output is the key the value is returned under: the bare field for the
// primary object, table__field otherwise.
func (k Key) Output() string {
	if !k.Foreign {
		return k.Field
	}
	return k.Table + tableSeparator + k.Field
}

func (k Key) validate() error {
	if !domain.ValidIdentifier(k.Table) || !domain.ValidIdentifier(k.Field) {
		return domain.ParamErrorf("illegal key %s", k.Qualified())
	}
	return nil
}
