package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the view worker
type Config struct {
	// Worker configuration
	WorkerID string `env:"WORKER_ID" envDefault:"view-1"`

	// Redis configuration
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASS" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Stream configuration
	StreamKey      string        `env:"STREAM_KEY" envDefault:"view.work"`
	ConsumerGroup  string        `env:"CONSUMER_GROUP" envDefault:"view-workers"`
	ResultStream   string        `env:"RESULT_STREAM" envDefault:"view.rendered"`
	BlockTime      time.Duration `env:"BLOCK_TIME" envDefault:"1s"`
	StateKeyPrefix string        `env:"STATE_KEY_PREFIX" envDefault:"graph:state:"`

	// View configuration
	ViewsDir          string `env:"VIEWS_DIR" envDefault:"./views"`
	ViewExtension     string `env:"VIEW_EXTENSION" envDefault:".json"`
	ViewCache         bool   `env:"VIEW_CACHE" envDefault:"true"`
	HelpersFile       string `env:"HELPERS_FILE"`
	RenderConcurrency int    `env:"RENDER_CONCURRENCY" envDefault:"16"`

	// Health check configuration
	HealthPort int `env:"HEALTH_PORT" envDefault:"8083"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.WorkerID == "" {
		return fmt.Errorf("WORKER_ID is required")
	}

	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.StreamKey == "" {
		return fmt.Errorf("STREAM_KEY is required")
	}

	if c.ConsumerGroup == "" {
		return fmt.Errorf("CONSUMER_GROUP is required")
	}

	if c.ResultStream == "" {
		return fmt.Errorf("RESULT_STREAM is required")
	}

	if c.BlockTime <= 0 {
		return fmt.Errorf("BLOCK_TIME must be positive")
	}

	if c.ViewsDir == "" {
		return fmt.Errorf("VIEWS_DIR is required")
	}

	if !strings.HasPrefix(c.ViewExtension, ".") {
		return fmt.Errorf("VIEW_EXTENSION must start with a dot")
	}

	if c.RenderConcurrency < 0 {
		return fmt.Errorf("RENDER_CONCURRENCY must be non-negative")
	}

	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("HEALTH_PORT must be between 1 and 65535")
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{WorkerID=%s, RedisAddr=%s, RedisDB=%d, StreamKey=%s, ConsumerGroup=%s, "+
			"ViewsDir=%s, ViewCache=%v, HelpersFile=%s, HealthPort=%d, LogLevel=%s}",
		c.WorkerID,
		c.RedisAddr,
		c.RedisDB,
		c.StreamKey,
		c.ConsumerGroup,
		c.ViewsDir,
		c.ViewCache,
		c.HelpersFile,
		c.HealthPort,
		c.LogLevel,
	)
}
