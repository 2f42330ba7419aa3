package tca

import (
	"fmt"
	"strconv"
	"strings"
)

// Truthy applies the loose truthiness rows and configuration values carry:
// nil, false, zero numbers, "" and "0" are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	case []byte:
		return len(t) > 0 && string(t) != "0"
	case int:
		return t != 0
	case int8:
		return t != 0
	case int16:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case uint:
		return t != 0
	case uint8:
		return t != 0
	case uint16:
		return t != 0
	case uint32:
		return t != 0
	case uint64:
		return t != 0
	case float32:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// IntValue converts a loosely typed row or configuration value to an integer.
// The second return value is false when v carries no integer.
func IntValue(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true
	case float32:
		return int64(t), true
	case float64:
		return int64(t), true
	case []byte:
		return IntValue(string(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// StringOf renders a loosely typed value the way it would appear in a comma list or type key.
func StringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

// IntList splits a comma separated list into integers, skipping empty and non-numeric parts.
func IntList(v any) []int {
	raw := StringOf(v)
	if raw == "" {
		return []int{}
	}
	parts := strings.Split(raw, ",")
	list := make([]int, 0, len(parts))
	for _, part := range parts {
		if i, ok := IntValue(part); ok {
			list = append(list, int(i))
		}
	}
	return list
}

func intValue(v any) (int64, bool) {
	return IntValue(v)
}

func truthy(v any) bool {
	return Truthy(v)
}

func mapValue(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	switch t := m[key].(type) {
	case map[string]any:
		return t
	case map[any]any:
		converted := make(map[string]any, len(t))
		for k, v := range t {
			converted[fmt.Sprint(k)] = v
		}
		return converted
	}
	return nil
}

func stringValue(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(StringOf(m[key]))
}

func hasKey(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	_, ok := m[key]
	return ok
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}
