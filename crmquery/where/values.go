package where

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// text formats a scalar the way it appears unquoted on the wire
func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return strconv.FormatInt(x.UnixMilli(), 10)
	case *time.Time:
		if x == nil {
			return ""
		}
		return strconv.FormatInt(x.UnixMilli(), 10)
	default:
		return fmt.Sprint(v)
	}
}

// searchDate renders a timestamp as yyyyMMddHHmmss in UTC
func searchDate(t time.Time) string {
	return t.UTC().Format("20060102150405")
}

// queryLiteral formats a literal for the query dialect.
// Dates become epoch milliseconds; strings are single-quoted with '*' removed.
func queryLiteral(v any) string {
	switch x := v.(type) {
	case time.Time, *time.Time:
		return text(x)
	case string:
		return "'" + strings.ReplaceAll(x, "*", "") + "'"
	}
	if isNumberOrBool(v) {
		return text(v)
	}
	return "'" + strings.ReplaceAll(text(v), "*", "") + "'"
}

// queryList formats list contents; the first element decides quoting
func queryList(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = text(v)
	}
	if len(values) > 0 && isNumberOrBool(values[0]) {
		return strings.Join(parts, ",")
	}
	return "'" + strings.Join(parts, "','") + "'"
}

// searchLiteral formats a literal for the search dialect
func searchLiteral(v any) string {
	switch x := v.(type) {
	case time.Time:
		return searchDate(x)
	case *time.Time:
		if x != nil {
			return searchDate(*x)
		}
	case string:
		if x == "*" {
			return x
		}
	}
	if isNumberOrBool(v) {
		return text(v)
	}
	return `"` + text(v) + `"`
}

// searchList formats a parenthesized term list; the first element decides quoting
func searchList(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = text(v)
	}
	if len(values) > 0 && isNumberOrBool(values[0]) {
		return "(" + strings.Join(parts, " ") + ")"
	}
	return `("` + strings.Join(parts, `" "`) + `")`
}

// quotedTerms quotes terms that contain a space and joins them with sep
func quotedTerms(values []any, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		t := text(v)
		if strings.Contains(strings.TrimSpace(t), " ") {
			t = `"` + t + `"`
		}
		parts[i] = t
	}
	return "(" + strings.Join(parts, sep) + ")"
}
