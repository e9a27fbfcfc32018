package view

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Extract walks a dotted path through nested records and returns the value
// found, or nil as soon as a segment misses or the current value cannot be
// traversed. Canonical decimal segments ("0", "12", not "01") index into
// arrays. An empty segment ends the walk.
func Extract(value any, path string) any {
	current := value
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			break
		}

		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil
			}
			current = next
		case []any:
			i, ok := arrayIndex(segment, len(node))
			if !ok {
				return nil
			}
			current = node[i]
		default:
			return nil
		}
	}
	return current
}

func arrayIndex(segment string, length int) (int, bool) {
	// "01" is a property name, not an index
	if len(segment) > 1 && segment[0] == '0' {
		return 0, false
	}
	for _, c := range segment {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(segment)
	if err != nil || i >= length {
		return 0, false
	}
	return i, true
}

// isRecord reports whether v can be rendered with a template.
func isRecord(v any) bool {
	m, ok := v.(map[string]any)
	return ok && m != nil
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func indexPath(prefix string, i int) string {
	return prefix + "[" + strconv.Itoa(i) + "]"
}

// normalize converts input into the generic JSON value model. Values that are
// already generic are returned as is; anything else goes through its JSON encoding.
func normalize(data any) (any, error) {
	if generic(data) {
		return data, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var out any
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func generic(v any) bool {
	switch val := v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	case map[string]any:
		for _, item := range val {
			if !generic(item) {
				return false
			}
		}
		return true
	case []any:
		for _, item := range val {
			if !generic(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
