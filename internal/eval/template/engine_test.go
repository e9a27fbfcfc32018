package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Compile(t *testing.T) {
	engine := NewEngine()
	record := map[string]any{
		"firstname": "John",
		"lastname":  "Doe",
		"status":    "active",
		"tags":      []any{"a", "b", "c"},
		"empty":     "",
	}

	tests := []struct {
		name   string
		source string
		value  any
		want   string
	}{
		{"value", "hello_{{value}}", "world", "hello_world"},
		{"record", "{{record.firstname}} {{record.lastname}}", nil, "John Doe"},
		{"uppercase", "{{uppercase record.lastname}}", nil, "DOE"},
		{"lowercase", "{{lowercase value}}", "PaRiS", "paris"},
		{"trim", "[{{trim value}}]", "  x  ", "[x]"},
		{"default", "{{default record.empty \"N/A\"}}", nil, "N/A"},
		{"eq", "{{#if (eq record.status \"active\")}}on{{else}}off{{/if}}", nil, "on"},
		{"ne", "{{#if (ne record.status \"active\")}}on{{else}}off{{/if}}", nil, "off"},
		{"join", "{{join record.tags \", \"}}", nil, "a, b, c"},
		{"len", "{{len record.tags}}", nil, "3"},
		{"contains", "{{#if (contains value \"ar\")}}yes{{/if}}", "paris", "yes"},
		{"raw output", "{{{value}}}", "a&b", "a&b"},
		{"escaped output", "{{value}}", "a&b", "a&amp;b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			helper, err := engine.Compile(tt.source)
			require.NoError(t, err)

			got, err := helper(context.Background(), tt.value, record)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_Errors(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Compile("{{#if value}}unclosed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile template")
}

func TestEngine_Render(t *testing.T) {
	// a second engine must not re-register the global helpers
	engine := NewEngine()

	got, err := engine.Render("{{uppercase value}}", "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "X", got)

	_, err = engine.Render("{{uppercase value}}", "y", nil)
	require.NoError(t, err)
	assert.Len(t, engine.cache, 1)
}
