package store

import (
	"net/url"
	"strconv"
	"strings"
)

// Defaults applied when a list request does not specify pagination.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Op is a filter comparison operator.
type Op string

// Supported operators. Query keys of the form field[op] select one of the
// comparison operators; a bare field key means equality.
const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpGt  Op = "gt"
	OpLte Op = "lte"
	OpLt  Op = "lt"
)

// Condition is one filter predicate over a JSON-named field.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// SortKey orders results by one field.
type SortKey struct {
	Field string
	Desc  bool
}

// ListQuery is the backend-neutral shape of a collection read. Building it
// performs no I/O; the store executes it.
type ListQuery struct {
	Conditions []Condition
	Sort       []SortKey
	// Fields is the response projection, applied after the read. Empty means
	// the default projection (everything except the version counter).
	Fields []string
	Page   int
	Limit  int
}

// Bounds returns the LIMIT and OFFSET values for the query. A zero or
// negative limit or page falls back to the defaults, so a zero-value query
// reads the first default-sized page instead of nothing.
func (q ListQuery) Bounds() (limit, offset int) {
	limit = q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	page := q.Page
	if page <= 0 {
		page = DefaultPage
	}
	return limit, limit * (page - 1)
}

// WithCondition returns a copy of the query with an extra equality condition
// prepended, used to scope nested collection reads.
func (q ListQuery) WithCondition(field string, value any) ListQuery {
	conds := make([]Condition, 0, len(q.Conditions)+1)
	conds = append(conds, Condition{Field: field, Op: OpEq, Value: value})
	conds = append(conds, q.Conditions...)
	q.Conditions = conds
	return q
}

// reserved parameter names consumed by the shaper itself.
var reservedParams = map[string]bool{
	"page":   true,
	"limit":  true,
	"sort":   true,
	"fields": true,
}

// ParseListQuery shapes raw URL query parameters into a ListQuery.
//
//	?duration[gte]=5&difficulty=easy&sort=-price,name&fields=name,price&page=2&limit=20
//
// Numeric-looking values are typed as float64 so comparisons work against
// numeric columns. Unknown field names are kept as-is here; the executor
// rejects fields it cannot map.
func ParseListQuery(values url.Values) ListQuery {
	q := ListQuery{Page: DefaultPage, Limit: DefaultLimit}

	for key, vals := range values {
		if reservedParams[key] {
			continue
		}
		field, op := splitFilterKey(key)
		for _, v := range vals {
			q.Conditions = append(q.Conditions, Condition{
				Field: field,
				Op:    op,
				Value: typeValue(v),
			})
		}
	}

	if sort := values.Get("sort"); sort != "" {
		for _, part := range strings.Split(sort, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if strings.HasPrefix(part, "-") {
				q.Sort = append(q.Sort, SortKey{Field: part[1:], Desc: true})
			} else {
				q.Sort = append(q.Sort, SortKey{Field: part})
			}
		}
	}

	if fields := values.Get("fields"); fields != "" {
		for _, f := range strings.Split(fields, ",") {
			if f = strings.TrimSpace(f); f != "" {
				q.Fields = append(q.Fields, f)
			}
		}
	}

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	if limit, err := strconv.Atoi(values.Get("limit")); err == nil && limit > 0 {
		q.Limit = limit
	}

	return q
}

// splitFilterKey parses "price[lte]" into ("price", OpLte). A bare key or an
// unrecognized bracket suffix is treated as equality on the full key.
func splitFilterKey(key string) (string, Op) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	field := key[:open]
	switch Op(key[open+1 : len(key)-1]) {
	case OpGte:
		return field, OpGte
	case OpGt:
		return field, OpGt
	case OpLte:
		return field, OpLte
	case OpLt:
		return field, OpLt
	default:
		return key, OpEq
	}
}

// typeValue converts a raw query value into the most specific type: float64
// when numeric, bool for true/false, string otherwise.
func typeValue(v string) any {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if v == "true" {
		return true
	}
	if v == "false" {
		return false
	}
	return v
}
