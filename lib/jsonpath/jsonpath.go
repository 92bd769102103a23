// Package jsonpath walks decoded JSON values (the output of
// encoding/json into an `any`) by dot-separated paths.
package jsonpath

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Segments splits a path like "data.installmentPlan.1.tenor", empty
// segments are dropped.
func Segments(path string) []string {
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Lookup resolves path against root. Objects are indexed by key and arrays
// by decimal index. It reports false if any segment is missing, if an
// intermediate value is not a container, or if the value found is null.
func Lookup(root any, path string) (any, bool) {
	current := root
	for _, seg := range Segments(path) {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

// Text renders a scalar JSON value the way it would appear in a request
// body or a log line, numbers keep their original formatting when decoded
// with json.Decoder.UseNumber.
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}

// LookupText is Lookup followed by Text.
func LookupText(root any, path string) (string, bool) {
	value, ok := Lookup(root, path)
	if !ok {
		return "", false
	}
	return Text(value), true
}
