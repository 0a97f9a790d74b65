package bridge

import (
	"context"
	"fmt"
	"sync"
)

// CallbackHost is the continuation-passing host convention: the primitive
// reports completion through a callback.
type CallbackHost interface {
	Evaluate(code string, done func(value any, errInfo map[string]any))
}

// PromiseHost is the promise-returning host convention: the primitive
// resolves a channel with either a bare value or a [value, errInfo]
// tuple.
type PromiseHost interface {
	Evaluate(code string) <-chan any
}

type strategy int

const (
	strategyCallback strategy = iota
	strategyPromise
)

// Adapter presents one evaluation contract regardless of which
// convention the host exhibits. The convention is detected once at
// construction and never re-detected per call.
type Adapter struct {
	strategy strategy
	callback CallbackHost
	promise  PromiseHost
}

// NewAdapter detects the host's convention. A host exposing both is
// driven through its callback; any later promise resolution is ignored.
func NewAdapter(h any) (*Adapter, error) {
	if cb, ok := h.(CallbackHost); ok {
		return &Adapter{strategy: strategyCallback, callback: cb}, nil
	}
	if pr, ok := h.(PromiseHost); ok {
		return &Adapter{strategy: strategyPromise, promise: pr}, nil
	}
	return nil, ErrUnsupportedHost
}

// Evaluate runs code in the target context. Failures of the primitive
// itself come back as *EvalError rather than propagating, so callers
// always receive the normalized tuple form. The adapter holds no state
// beyond the in-flight call and performs no retries.
func (a *Adapter) Evaluate(ctx context.Context, code string) (value any, evalErr *EvalError) {
	defer func() {
		if rec := recover(); rec != nil {
			value = nil
			evalErr = &EvalError{Message: fmt.Sprintf("host evaluation panicked: %v", rec)}
		}
	}()

	if a.strategy == strategyCallback {
		return a.evaluateCallback(ctx, code)
	}
	return a.evaluatePromise(ctx, code)
}

type outcome struct {
	value   any
	evalErr *EvalError
}

func (a *Adapter) evaluateCallback(ctx context.Context, code string) (any, *EvalError) {
	results := make(chan outcome, 1)
	var once sync.Once

	a.callback.Evaluate(code, func(value any, errInfo map[string]any) {
		// A misbehaving host may signal completion more than once; only
		// the first signal counts.
		once.Do(func() {
			if errInfo != nil {
				results <- outcome{evalErr: evalErrorFrom(errInfo)}
				return
			}
			results <- outcome{value: value}
		})
	})

	select {
	case out := <-results:
		return out.value, out.evalErr
	case <-ctx.Done():
		return nil, &EvalError{Message: fmt.Sprintf("evaluation abandoned: %v", ctx.Err())}
	}
}

func (a *Adapter) evaluatePromise(ctx context.Context, code string) (any, *EvalError) {
	ch := a.promise.Evaluate(code)

	select {
	case resolved, ok := <-ch:
		if !ok {
			return nil, &EvalError{Message: "host promise settled without a value"}
		}
		return normalizeResolved(resolved)
	case <-ctx.Done():
		return nil, &EvalError{Message: fmt.Sprintf("evaluation abandoned: %v", ctx.Err())}
	}
}

// normalizeResolved accepts either a bare resolved value or a
// [value, errInfo] tuple and returns the tuple form.
func normalizeResolved(resolved any) (any, *EvalError) {
	tuple, ok := resolved.([]any)
	if !ok || len(tuple) != 2 {
		return resolved, nil
	}
	if tuple[1] == nil {
		return tuple[0], nil
	}
	if info, ok := tuple[1].(map[string]any); ok {
		return nil, evalErrorFrom(info)
	}
	return nil, &EvalError{Message: fmt.Sprint(tuple[1])}
}

func evalErrorFrom(info map[string]any) *EvalError {
	if msg, ok := info["message"].(string); ok && msg != "" {
		return &EvalError{Message: msg}
	}
	return &EvalError{Message: fmt.Sprintf("evaluation failed: %v", info)}
}
