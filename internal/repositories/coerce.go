package repositories

import (
	"fmt"
	"strconv"
	"time"
)

// Raw record-store rows carry driver-dependent value types (int64 from
// SQLite, float64 from JSON paths, strings from text columns). The helpers
// below coerce defensively in one place so every call site gets typed fields.

func fieldString(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func fieldInt(row map[string]any, key string) (int, error) {
	switch v := row[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("field %s: cannot parse %q as integer", key, v)
		}
		return parsed, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("field %s: unexpected type %T", key, v)
	}
}

func fieldFloat(row map[string]any, key string) (float64, error) {
	switch v := row[key].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("field %s: cannot parse %q as number", key, v)
		}
		return parsed, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("field %s: unexpected type %T", key, v)
	}
}

// fieldTime parses an RFC3339 timestamp field; empty means unset.
func fieldTime(row map[string]any, key string) (*time.Time, error) {
	value := fieldString(row, key)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("field %s: cannot parse %q as timestamp", key, value)
	}
	return &parsed, nil
}

func encodeTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
