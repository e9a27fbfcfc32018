package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_Compile(t *testing.T) {
	evaluator := NewEvaluator()
	ctx := context.Background()
	record := map[string]any{
		"hello": "world",
		"price": float64(3),
		"tags":  []any{"a", "b"},
	}

	tests := []struct {
		name       string
		expression string
		value      any
		want       any
	}{
		{"string concat", "value + '_42'", "answer", "answer_42"},
		{"record access", "'hello_' + record.hello", nil, "hello_world"},
		{"arithmetic", "record.price * 2.0", nil, float64(6)},
		{"string extension", "value.upperAscii()", "paris", "PARIS"},
		{"conditional", "value == null ? 'n/a' : value", nil, "n/a"},
		{"null", "null", "x", nil},
		{"list", "record.tags.map(t, t + '!')", nil, []any{"a!", "b!"}},
		{"map", "{'v': value}", "x", map[string]any{"v": "x"}},
		{"size", "size(record.tags)", nil, int64(2)},
		{"has", "has(record.missing)", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			helper, err := evaluator.Compile(tt.expression)
			require.NoError(t, err)

			got, err := helper(ctx, tt.value, record)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_Errors(t *testing.T) {
	evaluator := NewEvaluator()

	t.Run("syntax error", func(t *testing.T) {
		_, err := evaluator.Compile("value +")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to compile expression")
	})

	t.Run("unknown variable", func(t *testing.T) {
		_, err := evaluator.Compile("other + 1")
		require.Error(t, err)
	})

	t.Run("evaluation error", func(t *testing.T) {
		helper, err := evaluator.Compile("record.missing + 'x'")
		require.NoError(t, err)

		_, err = helper(context.Background(), nil, map[string]any{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "evaluation failed")
	})
}

func TestEvaluator_Evaluate(t *testing.T) {
	evaluator := NewEvaluator()

	got, err := evaluator.Evaluate(context.Background(), "value * 2.0", float64(21), nil)
	require.NoError(t, err)
	assert.Equal(t, float64(42), got)

	// compiled programs are reused
	_, err = evaluator.Evaluate(context.Background(), "value * 2.0", float64(1), nil)
	require.NoError(t, err)
	assert.Len(t, evaluator.cache, 1)
}
