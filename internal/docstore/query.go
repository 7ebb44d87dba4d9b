package docstore

import (
	"cmp"
	"slices"
	"time"
)

// Op is a filter operator.
type Op string

const (
	Equal Op = "=="
	In    Op = "in"
)

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter restricts a query to documents whose field matches Value.
// For In, Value must be a slice.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes a collection read. The zero Order means store order
// (creation order for the local stores).
type Query struct {
	Collection string
	Filters    []Filter
	Order      string
	Dir        Direction
}

// Collection starts a query over the collection at path.
func Collection(path string) Query {
	return Query{Collection: path}
}

// Where returns a copy of q with an extra filter.
func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// OrderBy returns a copy of q ordered by field.
func (q Query) OrderBy(field string, dir Direction) Query {
	q.Order = field
	q.Dir = dir
	return q
}

// Matches reports whether d satisfies every filter of q. Documents missing
// the order field never match an ordered query.
func (q Query) Matches(d Document) bool {
	for _, f := range q.Filters {
		v, ok := d.Data[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case Equal:
			if !equal(v, f.Value) {
				return false
			}
		case In:
			if !slices.ContainsFunc(toSlice(f.Value), func(c any) bool { return equal(v, c) }) {
				return false
			}
		default:
			return false
		}
	}
	if q.Order != "" {
		if v, ok := d.Data[q.Order]; !ok || v == nil {
			return false
		}
	}
	return true
}

// Apply filters docs, which must be in store order, and sorts them by the
// query order. Ties keep store order.
func (q Query) Apply(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	if q.Order != "" {
		slices.SortStableFunc(out, func(a, b Document) int {
			c := compare(a.Data[q.Order], b.Data[q.Order])
			if q.Dir == Desc {
				return -c
			}
			return c
		})
	}
	return out
}

// Normalize widens integer and float kinds so values compare consistently.
func Normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}

func toSlice(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func equal(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	switch a.(type) {
	case nil, bool, string, int64, float64:
		return a == b
	}
	return false
}

func compare(a, b any) int {
	a, b = Normalize(a), Normalize(b)
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	}
	return 0
}
