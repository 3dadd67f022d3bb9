package storage

import (
	"fmt"
	"strings"

	"ahorro/internal/docstore"
)

const selectDocuments = `SELECT collection, id, data, created_at, updated_at FROM documents WHERE collection = ?`

// jsonPath addresses a validated top-level field.
func jsonPath(field string) string {
	return fmt.Sprintf(`'$."%s"'`, field)
}

// typeGuard keeps comparisons within one JSON kind so numbers never compare
// against strings, matching the in-memory backend.
func typeGuard(field string, value any) (string, any, error) {
	path := jsonPath(field)
	switch v := value.(type) {
	case float64:
		return fmt.Sprintf("json_type(data, %s) IN ('integer', 'real')", path), v, nil
	case string:
		return fmt.Sprintf("json_type(data, %s) = 'text'", path), v, nil
	case bool:
		n := int64(0)
		if v {
			n = 1
		}
		return fmt.Sprintf("json_type(data, %s) IN ('true', 'false')", path), n, nil
	default:
		return "", nil, fmt.Errorf("unsupported filter value %T for field %q", value, field)
	}
}

// buildQuery turns a docstore query into SQL. Field names are validated
// before they reach the statement text; values are always bound.
func buildQuery(q docstore.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString(selectDocuments)
	args := []any{q.Collection}

	for _, f := range q.Filters {
		norm, err := docstore.NormalizeValue(f.Value)
		if err != nil {
			return "", nil, err
		}
		guard, arg, err := typeGuard(f.Field, norm)
		if err != nil {
			return "", nil, err
		}
		fmt.Fprintf(&sb, " AND %s AND json_extract(data, %s) %s ?", guard, jsonPath(f.Field), f.Op.SQL())
		args = append(args, arg)
	}

	if q.OrderBy != "" {
		path := jsonPath(q.OrderBy)
		fmt.Fprintf(&sb, " AND json_type(data, %s) NOT IN ('null')", path)
		fmt.Fprintf(&sb, " ORDER BY json_extract(data, %s)", path)
		if q.Desc {
			sb.WriteString(" DESC")
		}
		sb.WriteString(", id")
	} else {
		sb.WriteString(" ORDER BY id")
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return sb.String(), args, nil
}
