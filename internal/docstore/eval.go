package docstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Normalize round-trips data through JSON so every backend stores and returns
// the same shapes.
func Normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// NormalizeValue applies the same JSON round-trip to a single query value.
func NormalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

// CloneData returns a deep copy of a normalized document.
func CloneData(data map[string]any) map[string]any {
	out, err := Normalize(data)
	if err != nil {
		return map[string]any{}
	}
	return out
}

// compareValues orders two normalized scalars. ok is false when the values are
// of different kinds or not comparable.
func compareValues(a, b any) (c int, ok bool) {
	switch av := a.(type) {
	case float64:
		bv, isNum := b.(float64)
		if !isNum {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, isStr := b.(string)
		if !isStr {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, isBool := b.(bool)
		if !isBool {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// Matches reports whether a normalized document satisfies every filter.
// Filter values must already be normalized.
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, present := data[f.Field]
		if !present || v == nil {
			return false
		}
		c, ok := compareValues(v, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if c != 0 {
				return false
			}
		case OpGreaterEqual:
			if c < 0 {
				return false
			}
		case OpLess:
			if c >= 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Apply runs filtering, ordering and limiting over snapshots in memory.
// Documents missing the order field are dropped. Ties fall back to the id.
func Apply(snaps []Snapshot, q Query) []Snapshot {
	out := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if !Matches(s.Data, q.Filters) {
			continue
		}
		if q.OrderBy != "" {
			if v, ok := s.Data[q.OrderBy]; !ok || v == nil {
				continue
			}
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy != "" {
			c, ok := compareValues(out[i].Data[q.OrderBy], out[j].Data[q.OrderBy])
			if ok && c != 0 {
				if q.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return out[i].Ref.ID < out[j].Ref.ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
