package sqlite

import (
	"fmt"
	"strings"

	"github.com/trailheadapp/trailhead-server/internal/store"
)

// columnMap translates JSON field names used in query strings into the
// columns a resource exposes for filtering and sorting. A field missing from
// the map cannot be queried; the builder rejects it.
type columnMap map[string]string

// buildFilter renders the query conditions into SQL predicates. Returns
// store.ErrUnknownField for fields the resource does not expose.
func buildFilter(conds []store.Condition, cols columnMap) (clauses []string, args []any, err error) {
	for _, c := range conds {
		col, ok := cols[c.Field]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", store.ErrUnknownField, c.Field)
		}

		value := c.Value
		if b, isBool := value.(bool); isBool {
			value = boolToInt(b)
		}

		clauses = append(clauses, col+" "+sqlOp(c.Op)+" ?")
		args = append(args, value)
	}
	return clauses, args, nil
}

// buildOrder renders the sort keys into an ORDER BY body, falling back to
// ascending ID when no sort was requested.
func buildOrder(sort []store.SortKey, cols columnMap, fallback string) (string, error) {
	if len(sort) == 0 {
		return fallback, nil
	}

	parts := make([]string, 0, len(sort))
	for _, key := range sort {
		col, ok := cols[key.Field]
		if !ok {
			return "", fmt.Errorf("%w: %q", store.ErrUnknownField, key.Field)
		}
		if key.Desc {
			parts = append(parts, col+" DESC")
		} else {
			parts = append(parts, col+" ASC")
		}
	}
	return strings.Join(parts, ", "), nil
}

func sqlOp(op store.Op) string {
	switch op {
	case store.OpGte:
		return ">="
	case store.OpGt:
		return ">"
	case store.OpLte:
		return "<="
	case store.OpLt:
		return "<"
	default:
		return "="
	}
}
