package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-view/internal/config"
	"github.com/aescanero/dago-node-view/internal/view"
)

var (
	// ErrInvalidView is returned for view names that are empty or escape the views directory
	ErrInvalidView = errors.New("invalid view name")
)

// Worker represents the view worker
type Worker struct {
	id            string
	config        *config.Config
	redisClient   *redis.Client
	engine        *view.Engine
	states        StateLoader
	renderOpts    view.RenderOptions
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	streamKey     string
	consumerGroup string
	resultStream  string
}

// NewWorker creates a new worker
func NewWorker(
	cfg *config.Config,
	redisClient *redis.Client,
	engine *view.Engine,
	states StateLoader,
	logger *zap.Logger,
) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		id:          cfg.WorkerID,
		config:      cfg,
		redisClient: redisClient,
		engine:      engine,
		states:      states,
		renderOpts: view.RenderOptions{
			Settings: view.Settings{
				Views:     cfg.ViewsDir,
				Extension: cfg.ViewExtension,
			},
			Cache: cfg.ViewCache,
		},
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		streamKey:     cfg.StreamKey,
		consumerGroup: cfg.ConsumerGroup,
		resultStream:  cfg.ResultStream,
	}
}

// Start starts the worker
func (w *Worker) Start() error {
	w.logger.Info("starting view worker",
		zap.String("worker_id", w.id),
		zap.String("stream_key", w.streamKey),
		zap.String("consumer_group", w.consumerGroup),
	)

	if err := w.ensureConsumerGroup(); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	w.wg.Add(1)
	go w.processWork()

	w.logger.Info("view worker started", zap.String("worker_id", w.id))
	return nil
}

// Stop stops the worker and waits for the in-flight request
func (w *Worker) Stop() error {
	w.logger.Info("stopping view worker", zap.String("worker_id", w.id))

	w.cancel()
	w.wg.Wait()

	w.logger.Info("view worker stopped", zap.String("worker_id", w.id))
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (w *Worker) ensureConsumerGroup() error {
	err := w.redisClient.XGroupCreateMkStream(w.ctx, w.streamKey, w.consumerGroup, "0").Err()
	if err != nil {
		// BUSYGROUP error means the group already exists, which is fine
		if err.Error() == "BUSYGROUP Consumer Group name already exists" {
			w.logger.Debug("consumer group already exists",
				zap.String("group", w.consumerGroup),
			)
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("created consumer group",
		zap.String("group", w.consumerGroup),
		zap.String("stream", w.streamKey),
	)
	return nil
}

// processWork processes work from the Redis stream
func (w *Worker) processWork() {
	defer w.wg.Done()
	w.logger.Info("starting work processing loop")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("work processing loop stopped")
			return
		default:
			streams, err := w.redisClient.XReadGroup(w.ctx, &redis.XReadGroupArgs{
				Group:    w.consumerGroup,
				Consumer: w.id,
				Streams:  []string{w.streamKey, ">"},
				Count:    1,
				Block:    w.config.BlockTime,
			}).Result()

			if err != nil {
				if errors.Is(err, redis.Nil) || w.ctx.Err() != nil {
					continue
				}
				w.logger.Error("failed to read from stream",
					zap.Error(err),
				)
				time.Sleep(time.Second)
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					w.handleMessage(message)
				}
			}
		}
	}
}

// handleMessage handles a single render request message
func (w *Worker) handleMessage(message redis.XMessage) {
	messageID := message.ID
	w.logger.Info("processing render request",
		zap.String("message_id", messageID),
	)

	request, err := parseRenderRequest(message.Values)
	if err != nil {
		w.logger.Error("failed to parse render request",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		w.acknowledgeMessage(messageID)
		return
	}

	result, err := w.render(request)
	if err != nil {
		w.logger.Error("failed to render view",
			zap.String("message_id", messageID),
			zap.String("execution_id", request.ExecutionID),
			zap.String("view", request.View),
			zap.Error(err),
		)
		w.publishError(request, err)
	} else if err := w.publishResult(result); err != nil {
		w.logger.Error("failed to publish render result",
			zap.String("execution_id", request.ExecutionID),
			zap.Error(err),
		)
	}

	w.acknowledgeMessage(messageID)
}

// RenderRequest represents a view render request
type RenderRequest struct {
	ExecutionID string          `json:"execution_id"`
	NodeID      string          `json:"node_id"`
	View        string          `json:"view"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// RenderResult represents a rendered view
type RenderResult struct {
	ExecutionID string    `json:"execution_id"`
	NodeID      string    `json:"node_id"`
	View        string    `json:"view"`
	Output      any       `json:"output"`
	Timestamp   time.Time `json:"timestamp"`
}

// parseRenderRequest parses a render request from Redis message
func parseRenderRequest(values map[string]interface{}) (*RenderRequest, error) {
	dataStr, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var request RenderRequest
	if err := json.Unmarshal([]byte(dataStr), &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal render request: %w", err)
	}

	return &request, nil
}

// render processes a consumed request. Stop does not interrupt it, so the
// message is only acknowledged once the render has really finished.
func (w *Worker) render(request *RenderRequest) (*RenderResult, error) {
	return w.Process(context.WithoutCancel(w.ctx), request)
}

// Process renders the requested view
func (w *Worker) Process(ctx context.Context, request *RenderRequest) (*RenderResult, error) {
	if request.View == "" || !filepath.IsLocal(request.View) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidView, request.View)
	}

	input, err := w.resolveInput(ctx, request)
	if err != nil {
		return nil, err
	}

	path := w.engine.ViewPath(w.renderOpts.Settings, request.View)
	output, err := w.engine.Render(ctx, path, input, w.renderOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to render view %s: %w", request.View, err)
	}

	return &RenderResult{
		ExecutionID: request.ExecutionID,
		NodeID:      request.NodeID,
		View:        request.View,
		Output:      output,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// resolveInput returns the inline request data, or the stored graph state
// of the execution when the request carries none
func (w *Worker) resolveInput(ctx context.Context, request *RenderRequest) (any, error) {
	data := bytes.TrimSpace(request.Data)
	if len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		var input any
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, fmt.Errorf("failed to unmarshal render data: %w", err)
		}
		return input, nil
	}

	if request.ExecutionID == "" {
		return nil, fmt.Errorf("render request has neither data nor execution_id")
	}

	st, err := w.states.Load(ctx, request.ExecutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	return map[string]interface{}(st), nil
}

// publishResult publishes the rendered view
func (w *Worker) publishResult(result *RenderResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = w.redisClient.XAdd(context.WithoutCancel(w.ctx), &redis.XAddArgs{
		Stream: w.resultStream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	w.logger.Info("published rendered view",
		zap.String("execution_id", result.ExecutionID),
		zap.String("view", result.View),
	)

	return nil
}

// publishError publishes an error event
func (w *Worker) publishError(request *RenderRequest, err error) {
	errorEvent := map[string]interface{}{
		"execution_id": request.ExecutionID,
		"node_id":      request.NodeID,
		"view":         request.View,
		"error":        err.Error(),
		"timestamp":    time.Now().UTC(),
	}

	data, marshalErr := json.Marshal(errorEvent)
	if marshalErr != nil {
		w.logger.Error("failed to marshal error event", zap.Error(marshalErr))
		return
	}

	_, publishErr := w.redisClient.XAdd(context.WithoutCancel(w.ctx), &redis.XAddArgs{
		Stream: w.resultStream + ".errors",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if publishErr != nil {
		w.logger.Error("failed to publish error event", zap.Error(publishErr))
	}
}

// acknowledgeMessage acknowledges a message from the stream
func (w *Worker) acknowledgeMessage(messageID string) {
	// acknowledge even when the worker is stopping mid-request
	err := w.redisClient.XAck(context.WithoutCancel(w.ctx), w.streamKey, w.consumerGroup, messageID).Err()
	if err != nil {
		w.logger.Error("failed to acknowledge message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
