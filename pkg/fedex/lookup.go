package fedex

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Reply shapes vary by region and API revision. Every concept that can
// come from more than one place is resolved through an ordered list of
// candidate paths; the first present (non-null) value wins.

type path []string

// p builds a path from a dotted string. Numeric segments index arrays.
func p(dotted string) path {
	return strings.Split(dotted, ".")
}

// dig walks a decoded JSON value along a path.
func dig(v any, keys path) (any, bool) {
	cur := v
	for _, k := range keys {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[k]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(k)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// firstOf returns the value at the first path that is present.
func firstOf(v any, paths ...path) (any, bool) {
	for _, candidate := range paths {
		if found, ok := dig(v, candidate); ok {
			return found, true
		}
	}
	return nil, false
}

// valueAt is dig without the presence flag.
func valueAt(v any, at path) any {
	found, _ := dig(v, at)
	return found
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// asString renders scalars as strings. Objects and arrays are not strings.
func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}

func stringAt(v any, paths ...path) string {
	found, ok := firstOf(v, paths...)
	if !ok {
		return ""
	}
	s, _ := asString(found)
	return s
}

func stringList(v any) []string {
	items := asSlice(v)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := asString(item); ok {
			out = append(out, s)
		}
	}
	return out
}

// numeric accepts numbers and numeric strings.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// truthy follows loose emptiness: nil, false, 0, "", "0" and empty
// containers are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case string:
		return t != "" && t != "0"
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// triState reads a boolean-like value. Only native booleans and the
// literal strings "true" and "false" are known.
func triState(v any) TriState {
	switch t := v.(type) {
	case bool:
		return TriStateOf(t)
	case string:
		switch t {
		case "true":
			return True
		case "false":
			return False
		}
	}
	return Unknown
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// nonBlank drops empty and whitespace-only lines, preserving order.
func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// prune removes nil values, empty strings and empty containers
// recursively. The upstream API rejects some empty-typed fields.
func prune(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return t, t != ""
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if kept, ok := prune(val); ok {
				out[k] = kept
			}
		}
		return out, len(out) > 0
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if kept, ok := prune(val); ok {
				out = append(out, kept)
			}
		}
		return out, len(out) > 0
	case []string:
		if len(t) == 0 {
			return nil, false
		}
		return t, true
	default:
		return t, true
	}
}

func pruneObject(m map[string]any) map[string]any {
	out, ok := prune(m)
	if !ok {
		return map[string]any{}
	}
	return out.(map[string]any)
}
