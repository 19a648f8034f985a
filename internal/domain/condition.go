package domain

// Condition is one predicate of a WHERE clause. The set of implementations is
// closed: the SQL builder switches over all of them.
type Condition interface {
	Column() string
	condition()
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpGE  CompareOp = ">="
	OpGT  CompareOp = ">"
	OpLT  CompareOp = "<"
	OpLE  CompareOp = "<="
	OpNEQ CompareOp = "!="
)

// Eq matches Field = Value.
type Eq struct {
	Field string
	Value any
}

// In matches Field IN (Values...). Values is never empty; use InOrNoMatch to
// build one from a possibly empty set.
type In struct {
	Field  string
	Values []any
}

// Like matches Field LIKE Pattern, with backslash as the escape character.
type Like struct {
	Field   string
	Pattern string
}

// LikeAll matches when Field is LIKE every pattern.
type LikeAll struct {
	Field    string
	Patterns []string
}

// Between matches Low <= Field <= High.
type Between struct {
	Field string
	Low   any
	High  any
}

// Compare matches Field Op Value.
type Compare struct {
	Field string
	Op    CompareOp
	Value any
}

// NoMatch is the marker for an empty key set: it matches no row at all and
// takes the place of an IN filter built from nothing.
type NoMatch struct {
	Field string
}

func (c Eq) Column() string      { return c.Field }
func (c In) Column() string      { return c.Field }
func (c Like) Column() string    { return c.Field }
func (c LikeAll) Column() string { return c.Field }
func (c Between) Column() string { return c.Field }
func (c Compare) Column() string { return c.Field }
func (c NoMatch) Column() string { return c.Field }

func (Eq) condition()      {}
func (In) condition()      {}
func (Like) condition()    {}
func (LikeAll) condition() {}
func (Between) condition() {}
func (Compare) condition() {}
func (NoMatch) condition() {}

// InOrNoMatch returns an In condition, or NoMatch when values is empty.
func InOrNoMatch(field string, values []any) Condition {
	if len(values) == 0 {
		return NoMatch{Field: field}
	}
	return In{Field: field, Values: values}
}

// WithColumn returns a copy of c that targets another column.
func WithColumn(c Condition, field string) Condition {
	switch v := c.(type) {
	case Eq:
		v.Field = field
		return v
	case In:
		v.Field = field
		return v
	case Like:
		v.Field = field
		return v
	case LikeAll:
		v.Field = field
		return v
	case Between:
		v.Field = field
		return v
	case Compare:
		v.Field = field
		return v
	case NoMatch:
		v.Field = field
		return v
	}
	return c
}
