package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/dago-libs/pkg/domain/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-view/internal/config"
	"github.com/aescanero/dago-node-view/internal/view"
)

type fakeStates struct {
	states map[string]state.State
	err    error
	loads  int
}

func (f *fakeStates) Load(_ context.Context, executionID string) (state.State, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	st, ok := f.states[executionID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return st, nil
}

func testConfig() *config.Config {
	return &config.Config{
		WorkerID:      "view-test",
		ViewsDir:      "testdata/views",
		ViewExtension: ".json",
		ViewCache:     true,
		StreamKey:     "view.work",
		ConsumerGroup: "view-workers",
		ResultStream:  "view.rendered",
	}
}

func newTestWorker(t *testing.T, states StateLoader) *Worker {
	t.Helper()

	engine := view.New(view.WithHelpers(view.Helpers{
		"uppercase": func(_ context.Context, value, _ any) (any, error) {
			s, _ := value.(string)
			return strings.ToUpper(s), nil
		},
		"fail": func(_ context.Context, _, _ any) (any, error) {
			return nil, errors.New("boom")
		},
	}))

	return NewWorker(testConfig(), nil, engine, states, zap.NewNop())
}

func marshal(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestParseRenderRequest(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		req, err := parseRenderRequest(map[string]interface{}{
			"data": `{"execution_id":"exec-1","node_id":"node-1","view":"post","data":{"title":"Hi"}}`,
		})
		require.NoError(t, err)
		assert.Equal(t, "exec-1", req.ExecutionID)
		assert.Equal(t, "node-1", req.NodeID)
		assert.Equal(t, "post", req.View)
		assert.JSONEq(t, `{"title":"Hi"}`, string(req.Data))
	})

	t.Run("missing data field", func(t *testing.T) {
		_, err := parseRenderRequest(map[string]interface{}{})
		require.Error(t, err)
	})

	t.Run("non string data field", func(t *testing.T) {
		_, err := parseRenderRequest(map[string]interface{}{"data": 42})
		require.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parseRenderRequest(map[string]interface{}{"data": "{"})
		require.Error(t, err)
	})
}

func TestWorker_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("renders inline data", func(t *testing.T) {
		states := &fakeStates{}
		w := newTestWorker(t, states)

		result, err := w.Process(ctx, &RenderRequest{
			ExecutionID: "exec-1",
			NodeID:      "node-1",
			View:        "post",
			Data:        json.RawMessage(`{"title":"Hello","body":"text","author":{"name":"Ann","age":30}}`),
		})
		require.NoError(t, err)

		assert.Equal(t, "exec-1", result.ExecutionID)
		assert.Equal(t, "node-1", result.NodeID)
		assert.Equal(t, "post", result.View)
		assert.False(t, result.Timestamp.IsZero())
		assert.Equal(t,
			`{"title":"Hello","author":{"name":"Ann"},"summary":"TEXT"}`,
			marshal(t, result.Output),
		)
		assert.Equal(t, 0, states.loads)
	})

	t.Run("falls back to graph state", func(t *testing.T) {
		states := &fakeStates{states: map[string]state.State{
			"exec-2": {"title": "From state", "body": "b"},
		}}
		w := newTestWorker(t, states)

		result, err := w.Process(ctx, &RenderRequest{ExecutionID: "exec-2", View: "post"})
		require.NoError(t, err)
		assert.Equal(t,
			`{"title":"From state","author":null,"summary":"B"}`,
			marshal(t, result.Output),
		)
		assert.Equal(t, 1, states.loads)
	})

	t.Run("null data falls back to graph state", func(t *testing.T) {
		states := &fakeStates{states: map[string]state.State{
			"exec-3": {"title": "T"},
		}}
		w := newTestWorker(t, states)

		_, err := w.Process(ctx, &RenderRequest{
			ExecutionID: "exec-3",
			View:        "post",
			Data:        json.RawMessage(` null `),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, states.loads)
	})

	t.Run("array data renders each element", func(t *testing.T) {
		w := newTestWorker(t, &fakeStates{})

		result, err := w.Process(ctx, &RenderRequest{
			View: "author",
			Data: json.RawMessage(`[{"name":"a","x":1},{"name":"b"}]`),
		})
		require.NoError(t, err)
		assert.Equal(t, `[{"name":"a"},{"name":"b"}]`, marshal(t, result.Output))
	})

	t.Run("invalid view names", func(t *testing.T) {
		w := newTestWorker(t, &fakeStates{})

		for _, name := range []string{"", "../post", "/etc/passwd"} {
			_, err := w.Process(ctx, &RenderRequest{
				View: name,
				Data: json.RawMessage(`{}`),
			})
			assert.ErrorIs(t, err, ErrInvalidView, "view %q", name)
		}
	})

	t.Run("neither data nor execution id", func(t *testing.T) {
		w := newTestWorker(t, &fakeStates{})

		_, err := w.Process(ctx, &RenderRequest{View: "post"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "execution_id")
	})

	t.Run("state not found", func(t *testing.T) {
		w := newTestWorker(t, &fakeStates{})

		_, err := w.Process(ctx, &RenderRequest{ExecutionID: "missing", View: "post"})
		assert.ErrorIs(t, err, ErrStateNotFound)
	})

	t.Run("state loader failure", func(t *testing.T) {
		loadErr := errors.New("connection refused")
		w := newTestWorker(t, &fakeStates{err: loadErr})

		_, err := w.Process(ctx, &RenderRequest{ExecutionID: "exec-1", View: "post"})
		assert.ErrorIs(t, err, loadErr)
	})

	t.Run("malformed inline data", func(t *testing.T) {
		w := newTestWorker(t, &fakeStates{})

		_, err := w.Process(ctx, &RenderRequest{View: "post", Data: json.RawMessage(`{"a":`)})
		require.Error(t, err)
	})

	t.Run("missing view", func(t *testing.T) {
		w := newTestWorker(t, &fakeStates{})

		_, err := w.Process(ctx, &RenderRequest{View: "nope", Data: json.RawMessage(`{}`)})
		var loadErr *view.TemplateLoadError
		assert.True(t, errors.As(err, &loadErr), "got %v", err)
	})

	t.Run("helper failure", func(t *testing.T) {
		w := newTestWorker(t, &fakeStates{})

		_, err := w.Process(ctx, &RenderRequest{View: "failing", Data: json.RawMessage(`{"title":"x"}`)})
		var helperErr *view.HelperExecutionError
		require.True(t, errors.As(err, &helperErr), "got %v", err)
		assert.Equal(t, "fail", helperErr.Helper)
		assert.Equal(t, "title", helperErr.Field)
	})
}

func TestWorker_StopDuringRender(t *testing.T) {
	started := make(chan struct{})
	engine := view.New(view.WithHelpers(view.Helpers{
		"slow": func(ctx context.Context, value, _ any) (any, error) {
			close(started)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(50 * time.Millisecond):
				return value, nil
			}
		},
	}))
	w := NewWorker(testConfig(), nil, engine, &fakeStates{}, zap.NewNop())

	stopped := make(chan struct{})
	go func() {
		<-started
		assert.NoError(t, w.Stop())
		close(stopped)
	}()

	result, err := w.render(&RenderRequest{
		ExecutionID: "exec-1",
		View:        "slow",
		Data:        json.RawMessage(`{"title":"kept"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"kept"}`, marshal(t, result.Output))

	<-stopped
	assert.ErrorIs(t, w.ctx.Err(), context.Canceled)
}
