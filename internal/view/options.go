package view

import (
	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

type engineConfig struct {
	helpers     Helpers
	store       *Store
	concurrency int
	logger      *zap.Logger
}

// WithHelpers sets the helpers available to format directives.
// The map is copied; later changes to it are not seen by the engine.
func WithHelpers(helpers Helpers) Option {
	return func(c *engineConfig) {
		c.helpers = helpers
	}
}

// WithStore sets the template store. Engines sharing a store share its cache.
// Default: a new store per engine.
func WithStore(store *Store) Option {
	return func(c *engineConfig) {
		c.store = store
	}
}

// WithConcurrency limits how many fields or array elements of a single record
// or array are rendered at once. Use 0 for no limit.
// Default: 0
func WithConcurrency(n int) Option {
	return func(c *engineConfig) {
		c.concurrency = n
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}
