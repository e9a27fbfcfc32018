package view

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ReadFileFunc reads a template file.
type ReadFileFunc func(name string) ([]byte, error)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithReadFile replaces the function used to read template files.
func WithReadFile(fn ReadFileFunc) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.readFile = fn
		}
	}
}

// WithStoreLogger sets the store logger.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store loads template files and caches parsed templates by absolute path.
// Cached entries are never evicted.
type Store struct {
	readFile ReadFileFunc
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[string]*Template
	group singleflight.Group
}

// NewStore creates a new template store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		readFile: os.ReadFile,
		logger:   zap.NewNop(),
		cache:    make(map[string]*Template),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the template stored at path. With useCache set, a cached
// template is returned without I/O, and a freshly read one is cached.
func (s *Store) Load(ctx context.Context, path string, useCache bool) (*Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &TemplateLoadError{Path: path, Err: err}
	}

	if !useCache {
		return s.read(abs)
	}

	if tmpl, ok := s.cached(abs); ok {
		s.logger.Debug("template cache hit", zap.String("path", abs))
		return tmpl, nil
	}

	// Concurrent misses for the same path share one read
	v, err, _ := s.group.Do(abs, func() (interface{}, error) {
		if tmpl, ok := s.cached(abs); ok {
			return tmpl, nil
		}

		tmpl, err := s.read(abs)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cache[abs] = tmpl
		s.mu.Unlock()
		return tmpl, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Template), nil
}

// Len returns the number of cached templates.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *Store) cached(path string) (*Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.cache[path]
	return tmpl, ok
}

func (s *Store) read(path string) (*Template, error) {
	s.logger.Debug("reading template", zap.String("path", path))

	data, err := s.readFile(path)
	if err != nil {
		return nil, &TemplateLoadError{Path: path, Err: err}
	}

	tmpl, err := Parse(data)
	if err != nil {
		return nil, &TemplateParseError{Path: path, Err: err}
	}

	return tmpl, nil
}
