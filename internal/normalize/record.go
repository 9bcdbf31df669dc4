// Package normalize converts loosely shaped backend JSON into the canonical
// model types. Nothing here returns an error: missing or mistyped fields
// degrade to defaults.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Record is a decoded JSON object.
type Record map[string]any

// Now is the clock used for missing timestamps.
var Now = time.Now

// AsRecord returns v as a Record, or nil when v is not an object.
func AsRecord(v any) Record {
	switch m := v.(type) {
	case Record:
		return m
	case map[string]any:
		return Record(m)
	}
	return nil
}

func (r Record) str(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func (r Record) num(keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := r[k].(type) {
		case float64:
			return int(v), true
		case int:
			return v, true
		case int64:
			return int(v), true
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return int(n), true
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func (r Record) count(keys ...string) int {
	n, _ := r.num(keys...)
	if n < 0 {
		return 0
	}
	return n
}

func (r Record) flag(keys ...string) (bool, bool) {
	for _, k := range keys {
		if v, ok := r[k].(bool); ok {
			return v, true
		}
	}
	return false, false
}

func (r Record) obj(keys ...string) Record {
	for _, k := range keys {
		if m := AsRecord(r[k]); m != nil {
			return m
		}
	}
	return nil
}

func (r Record) list(keys ...string) []any {
	for _, k := range keys {
		if v, ok := r[k].([]any); ok {
			return v
		}
	}
	return nil
}

func (r Record) strings(keys ...string) []string {
	items := r.list(keys...)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r Record) stamp(keys ...string) time.Time {
	if t, ok := r.optionalStamp(keys...); ok {
		return t
	}
	return Now().UTC()
}

func (r Record) optionalStamp(keys ...string) (time.Time, bool) {
	raw := r.str(keys...)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func records(items []any) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if m := AsRecord(item); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
