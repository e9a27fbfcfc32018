package template

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aymerick/raymond"

	"github.com/aescanero/dago-node-view/internal/view"
)

// raymond keeps helpers in a process-wide registry that rejects duplicates
var registerOnce sync.Once

// Engine compiles Handlebars helper templates
type Engine struct {
	cache map[string]*raymond.Template
	mu    sync.RWMutex
}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	registerOnce.Do(registerHelpers)

	return &Engine{
		cache: make(map[string]*raymond.Template),
	}
}

// Compile compiles a template source into a view helper
func (e *Engine) Compile(source string) (view.Helper, error) {
	tmpl, err := e.getTemplate(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile template: %w", err)
	}

	return func(ctx context.Context, value, record any) (any, error) {
		return exec(tmpl, value, record)
	}, nil
}

// Render renders a template source against a value and its record
func (e *Engine) Render(source string, value, record any) (string, error) {
	tmpl, err := e.getTemplate(source)
	if err != nil {
		return "", fmt.Errorf("failed to compile template: %w", err)
	}
	return exec(tmpl, value, record)
}

func exec(tmpl *raymond.Template, value, record any) (string, error) {
	result, err := tmpl.Exec(map[string]interface{}{
		"value":  value,
		"record": record,
	})
	if err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}
	return result, nil
}

// getTemplate gets a compiled template from cache or compiles it
func (e *Engine) getTemplate(source string) (*raymond.Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.cache[source]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.cache[source]; ok {
		return tmpl, nil
	}

	tmpl, err := raymond.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	e.cache[source] = tmpl

	return tmpl, nil
}

func registerHelpers() {
	raymond.RegisterHelpers(map[string]interface{}{
		"uppercase": strings.ToUpper,
		"lowercase": strings.ToLower,
		"trim":      strings.TrimSpace,
		"contains":  strings.Contains,
		"default": func(value interface{}, fallback interface{}) interface{} {
			if value == nil || value == "" {
				return fallback
			}
			return value
		},
		"eq": func(a, b interface{}) bool {
			return a == b
		},
		"ne": func(a, b interface{}) bool {
			return a != b
		},
		"join": func(items []interface{}, sep string) string {
			parts := make([]string, len(items))
			for i, item := range items {
				parts[i] = fmt.Sprint(item)
			}
			return strings.Join(parts, sep)
		},
		"len": func(value interface{}) int {
			switch v := value.(type) {
			case string:
				return len(v)
			case []interface{}:
				return len(v)
			case map[string]interface{}:
				return len(v)
			default:
				return 0
			}
		},
	})
}
