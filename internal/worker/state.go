package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aescanero/dago-libs/pkg/domain/state"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrStateNotFound is returned when no state is stored for an execution
var ErrStateNotFound = errors.New("state not found")

// StateLoader loads the graph state of an execution
type StateLoader interface {
	Load(ctx context.Context, executionID string) (state.State, error)
}

// RedisStateStore reads graph state stored as JSON by the orchestrator
type RedisStateStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStateStore creates a new Redis state store
func NewRedisStateStore(client *redis.Client, prefix string, logger *zap.Logger) *RedisStateStore {
	return &RedisStateStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Load loads graph state
func (s *RedisStateStore) Load(ctx context.Context, executionID string) (state.State, error) {
	key := s.prefix + executionID

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w for execution %s", ErrStateNotFound, executionID)
		}
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	var st state.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	s.logger.Debug("loaded graph state",
		zap.String("execution_id", executionID),
		zap.Int("keys", len(st)),
	)

	return st, nil
}
