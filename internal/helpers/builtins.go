package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aescanero/dago-node-view/internal/view"
)

// Builtins returns the built-in helpers. String helpers leave non-string
// values untouched.
func Builtins() view.Helpers {
	return view.Helpers{
		"uppercase": stringHelper(strings.ToUpper),
		"lowercase": stringHelper(strings.ToLower),
		"trim":      stringHelper(strings.TrimSpace),
		"string":    toString,
		"length":    length,
		"join":      join,
		"json":      toJSON,
	}
}

func stringHelper(fn func(string) string) view.Helper {
	return func(ctx context.Context, value, record any) (any, error) {
		s, ok := value.(string)
		if !ok {
			return value, nil
		}
		return fn(s), nil
	}
}

func toString(ctx context.Context, value, record any) (any, error) {
	if value == nil {
		return "", nil
	}
	return fmt.Sprint(value), nil
}

func length(ctx context.Context, value, record any) (any, error) {
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(v), nil
	case []any:
		return len(v), nil
	case map[string]any:
		return len(v), nil
	default:
		return 0, nil
	}
}

func join(ctx context.Context, value, record any) (any, error) {
	items, ok := value.([]any)
	if !ok {
		return value, nil
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprint(item)
	}
	return strings.Join(parts, ", "), nil
}

func toJSON(ctx context.Context, value, record any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
