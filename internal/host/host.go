package host

import (
	"github.com/GriffinCanCode/sandboxfs/internal/target"
)

// Callback evaluates code and reports completion through a one-shot
// callback: the continuation-passing host convention.
type Callback struct {
	rt *target.Runtime
}

// NewCallback wraps a target runtime in the callback convention.
func NewCallback(rt *target.Runtime) *Callback {
	return &Callback{rt: rt}
}

// Evaluate runs code and invokes done exactly once with either the
// exported value or an error record.
func (h *Callback) Evaluate(code string, done func(value any, errInfo map[string]any)) {
	value, err := h.rt.Eval(code)
	if err != nil {
		done(nil, errRecord(err))
		return
	}
	done(value, nil)
}

// Promise evaluates code asynchronously and resolves a channel with a
// [value, errInfo] tuple: the promise-returning host convention.
type Promise struct {
	rt *target.Runtime
}

// NewPromise wraps a target runtime in the promise convention.
func NewPromise(rt *target.Runtime) *Promise {
	return &Promise{rt: rt}
}

// Evaluate returns a channel that resolves with a two-element tuple once
// the evaluation settles.
func (h *Promise) Evaluate(code string) <-chan any {
	ch := make(chan any, 1)
	go func() {
		defer close(ch)
		value, err := h.rt.Eval(code)
		if err != nil {
			ch <- []any{nil, errRecord(err)}
			return
		}
		ch <- []any{value, nil}
	}()
	return ch
}

func errRecord(err error) map[string]any {
	return map[string]any{"message": err.Error()}
}
