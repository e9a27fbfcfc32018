package view

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultExtension is appended to view names referenced by view directives.
const DefaultExtension = ".json"

// Helper transforms an extracted value. record is the full input record the
// field belongs to. A helper may block; the render waits for it.
type Helper func(ctx context.Context, value any, record any) (any, error)

// Helpers maps helper names to helpers.
type Helpers map[string]Helper

// Settings locate the view files referenced by view directives.
type Settings struct {
	// Views is the directory containing view files.
	Views string
	// Extension is the view file extension. Default: ".json"
	Extension string
}

// RenderOptions apply to one render call and every nested view it loads.
type RenderOptions struct {
	Settings Settings
	Cache    bool
}

// Engine renders view templates. It is safe for concurrent use.
type Engine struct {
	store       *Store
	helpers     Helpers
	concurrency int
	logger      *zap.Logger
}

// New creates a new Engine with the given options.
func New(opts ...Option) *Engine {
	config := &engineConfig{}
	for _, opt := range opts {
		opt(config)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := config.store
	if store == nil {
		store = NewStore(WithStoreLogger(logger))
	}

	helpers := make(Helpers, len(config.helpers))
	for name, fn := range config.helpers {
		helpers[name] = fn
	}

	return &Engine{
		store:       store,
		helpers:     helpers,
		concurrency: config.concurrency,
		logger:      logger,
	}
}

// Store returns the engine's template store.
func (e *Engine) Store() *Store {
	return e.store
}

// LoadTemplate loads the template at path through the engine's store.
func (e *Engine) LoadTemplate(ctx context.Context, path string, useCache bool) (*Template, error) {
	return e.store.Load(ctx, path, useCache)
}

// ViewPath resolves a view name to its file path.
func (e *Engine) ViewPath(settings Settings, name string) string {
	ext := settings.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	return filepath.Join(settings.Views, name+ext)
}

// Render loads the template at path and renders data with it.
func (e *Engine) Render(ctx context.Context, path string, data any, opts RenderOptions) (any, error) {
	tmpl, err := e.store.Load(ctx, path, opts.Cache)
	if err != nil {
		return nil, err
	}
	return e.RenderTemplate(ctx, tmpl, data, opts)
}

// RenderTemplate renders data with a parsed template. A slice renders to a
// slice of records in the same order; anything else renders to one *Object.
func (e *Engine) RenderTemplate(ctx context.Context, tmpl *Template, data any, opts RenderOptions) (any, error) {
	input, err := normalize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize input: %w", err)
	}

	r := &renderer{engine: e, opts: opts}
	return r.render(ctx, tmpl, input, "")
}

// renderer carries the options of one render call down the recursion.
type renderer struct {
	engine *Engine
	opts   RenderOptions
}

func (r *renderer) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	if r.engine.concurrency > 0 {
		g.SetLimit(r.engine.concurrency)
	}
	return g, gctx
}

func (r *renderer) render(ctx context.Context, tmpl *Template, value any, path string) (any, error) {
	items, ok := value.([]any)
	if !ok {
		return r.renderObject(ctx, tmpl, value, path)
	}

	out := make([]any, len(items))
	g, gctx := r.group(ctx)
	for i, item := range items {
		g.Go(func() error {
			rendered, err := r.renderObject(gctx, tmpl, item, indexPath(path, i))
			if err != nil {
				return err
			}
			out[i] = rendered
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *renderer) renderObject(ctx context.Context, tmpl *Template, record any, path string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields := tmpl.fields
	values := make([]any, len(fields))

	g, gctx := r.group(ctx)
	for i, field := range fields {
		var value any
		if isRecord(record) {
			value = Extract(record, field.Spec.Source(field.Name))
		}

		if !field.Spec.deferred(value) {
			values[i] = value
			continue
		}

		g.Go(func() error {
			rendered, err := r.renderField(gctx, field.Spec, value, record, joinPath(path, field.Name))
			if err != nil {
				return err
			}
			values[i] = rendered
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := newObject(len(fields))
	for i, field := range fields {
		out.set(field.Name, values[i])
	}
	return out, nil
}

func (r *renderer) renderField(ctx context.Context, spec *FieldSpec, value, record any, path string) (any, error) {
	switch spec.Kind {
	case KindCompose:
		// records render with the view; anything else falls back to format
		if !isRecord(value) {
			if spec.Format != "" {
				return r.transform(ctx, spec.Format, value, record, path)
			}
			return value, nil
		}
		tmpl, err := r.engine.store.Load(ctx, r.engine.ViewPath(r.opts.Settings, spec.View), r.opts.Cache)
		if err != nil {
			return nil, err
		}
		return r.render(ctx, tmpl, value, path)

	case KindTransform:
		return r.transform(ctx, spec.Format, value, record, path)

	case KindNested:
		if !isRecord(value) {
			return value, nil
		}
		return r.renderObject(ctx, spec.Fields, value, path)

	default:
		return value, nil
	}
}

func (r *renderer) transform(ctx context.Context, name string, value, record any, path string) (result any, err error) {
	helper, ok := r.engine.helpers[name]
	if !ok || helper == nil {
		r.engine.logger.Debug("helper not registered, passing value through",
			zap.String("helper", name),
			zap.String("field", path),
		)
		return value, nil
	}

	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = &HelperExecutionError{Helper: name, Field: path, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	result, err = helper(ctx, value, record)
	if err != nil {
		return nil, &HelperExecutionError{Helper: name, Field: path, Err: err}
	}
	return result, nil
}
