package repo

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stored documents may come from older clients, so every reader below
// accepts a few shapes and falls back to the zero value.

func str(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func num(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

func numOr(data map[string]any, key string, fallback float64) float64 {
	if f, ok := num(data, key); ok {
		return f
	}
	return fallback
}

func dec(data map[string]any, key string) decimal.NullDecimal {
	switch v := data[key].(type) {
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(v, ",", ".")))
		if err == nil {
			return decimal.NewNullDecimal(d)
		}
	}
	return decimal.NullDecimal{}
}

func boolean(data map[string]any, key string) bool {
	switch v := data[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func obj(data map[string]any, key string) (map[string]any, bool) {
	m, ok := data[key].(map[string]any)
	return m, ok
}

// timestamp reads RFC 3339 strings as well as {seconds, nanoseconds} maps
// left by document exports.
func timestamp(data map[string]any, key string) time.Time {
	switch v := data[key].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	case map[string]any:
		secs, ok := num(v, "seconds")
		if !ok {
			secs, ok = num(v, "_seconds")
		}
		if ok {
			nanos := numOr(v, "nanoseconds", numOr(v, "_nanoseconds", 0))
			return time.Unix(int64(secs), int64(nanos)).UTC()
		}
	}
	return time.Time{}
}

// decimalNumber stores money as a JSON number, the shape older clients wrote.
func decimalNumber(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
