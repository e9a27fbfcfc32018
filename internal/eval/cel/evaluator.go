package cel

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"

	"github.com/aescanero/dago-node-view/internal/view"
)

// Variable names visible to expressions
const (
	VarValue  = "value"
	VarRecord = "record"
)

// Evaluator compiles and evaluates CEL expressions
type Evaluator struct {
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewEvaluator creates a new CEL evaluator
func NewEvaluator() *Evaluator {
	env, err := cel.NewEnv(
		cel.Variable(VarValue, cel.DynType),
		cel.Variable(VarRecord, cel.DynType),
		ext.Strings(),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create CEL environment: %v", err))
	}

	return &Evaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}
}

// Compile compiles an expression into a view helper
func (e *Evaluator) Compile(expression string) (view.Helper, error) {
	program, err := e.getProgram(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}

	return func(ctx context.Context, value, record any) (any, error) {
		return e.eval(ctx, program, value, record)
	}, nil
}

// Evaluate evaluates an expression against a value and its record
func (e *Evaluator) Evaluate(ctx context.Context, expression string, value, record any) (any, error) {
	program, err := e.getProgram(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}
	return e.eval(ctx, program, value, record)
}

func (e *Evaluator) eval(ctx context.Context, program cel.Program, value, record any) (any, error) {
	out, _, err := program.ContextEval(ctx, map[string]any{
		VarValue:  value,
		VarRecord: record,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	return nativeValue(out), nil
}

// getProgram gets a compiled program from cache or compiles it
func (e *Evaluator) getProgram(expression string) (cel.Program, error) {
	e.mu.RLock()
	if program, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return program, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.cache[expression]; ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("parse error: %w", issues.Err())
	}

	program, err := e.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, fmt.Errorf("program generation error: %w", err)
	}

	e.cache[expression] = program

	return program, nil
}

// nativeValue converts a CEL result into plain Go values
func nativeValue(val ref.Val) any {
	switch v := val.(type) {
	case types.Null:
		return nil
	case traits.Mapper:
		out := make(map[string]any)
		it := v.Iterator()
		for it.HasNext() == types.True {
			key := it.Next()
			out[fmt.Sprint(nativeValue(key))] = nativeValue(v.Get(key))
		}
		return out
	case traits.Lister:
		out := make([]any, 0)
		it := v.Iterator()
		for it.HasNext() == types.True {
			out = append(out, nativeValue(it.Next()))
		}
		return out
	default:
		return val.Value()
	}
}
