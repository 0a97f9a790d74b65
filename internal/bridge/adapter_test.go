package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCallbackHost struct {
	fn func(code string, done func(value any, errInfo map[string]any))
}

func (f *fakeCallbackHost) Evaluate(code string, done func(value any, errInfo map[string]any)) {
	f.fn(code, done)
}

type fakePromiseHost struct {
	fn func(code string) <-chan any
}

func (f *fakePromiseHost) Evaluate(code string) <-chan any {
	return f.fn(code)
}

// dualHost exposes both conventions; the adapter must pick the callback.
type dualHost struct {
	callbackUsed bool
	promiseUsed  bool
}

func (d *dualHost) Evaluate(code string, done func(value any, errInfo map[string]any)) {
	d.callbackUsed = true
	done("from callback", nil)
}

func (d *dualHost) EvaluatePromise(code string) <-chan any {
	d.promiseUsed = true
	ch := make(chan any, 1)
	ch <- "from promise"
	return ch
}

func TestNewAdapterUnsupportedHost(t *testing.T) {
	_, err := NewAdapter(struct{}{})
	assert.ErrorIs(t, err, ErrUnsupportedHost)
}

func TestAdapterCallbackConvention(t *testing.T) {
	h := &fakeCallbackHost{fn: func(code string, done func(any, map[string]any)) {
		done("ok:"+code, nil)
	}}
	a, err := NewAdapter(h)
	require.NoError(t, err)

	value, evalErr := a.Evaluate(context.Background(), "X")
	assert.Nil(t, evalErr)
	assert.Equal(t, "ok:X", value)
}

func TestAdapterCallbackError(t *testing.T) {
	h := &fakeCallbackHost{fn: func(code string, done func(any, map[string]any)) {
		done(nil, map[string]any{"message": "syntax error"})
	}}
	a, err := NewAdapter(h)
	require.NoError(t, err)

	value, evalErr := a.Evaluate(context.Background(), "X")
	assert.Nil(t, value)
	require.NotNil(t, evalErr)
	assert.Equal(t, "syntax error", evalErr.Message)
}

func TestAdapterCallbackFirstSignalWins(t *testing.T) {
	h := &fakeCallbackHost{fn: func(code string, done func(any, map[string]any)) {
		done("first", nil)
		done("second", nil)
		done(nil, map[string]any{"message": "late failure"})
	}}
	a, err := NewAdapter(h)
	require.NoError(t, err)

	value, evalErr := a.Evaluate(context.Background(), "X")
	assert.Nil(t, evalErr)
	assert.Equal(t, "first", value)
}

func TestAdapterPromiseBareValue(t *testing.T) {
	h := &fakePromiseHost{fn: func(code string) <-chan any {
		ch := make(chan any, 1)
		ch <- int64(42)
		return ch
	}}
	a, err := NewAdapter(h)
	require.NoError(t, err)

	value, evalErr := a.Evaluate(context.Background(), "X")
	assert.Nil(t, evalErr)
	assert.Equal(t, int64(42), value)
}

func TestAdapterPromiseTuple(t *testing.T) {
	t.Run("value with nil error", func(t *testing.T) {
		h := &fakePromiseHost{fn: func(code string) <-chan any {
			ch := make(chan any, 1)
			ch <- []any{"payload", nil}
			return ch
		}}
		a, err := NewAdapter(h)
		require.NoError(t, err)

		value, evalErr := a.Evaluate(context.Background(), "X")
		assert.Nil(t, evalErr)
		assert.Equal(t, "payload", value)
	})

	t.Run("error info", func(t *testing.T) {
		h := &fakePromiseHost{fn: func(code string) <-chan any {
			ch := make(chan any, 1)
			ch <- []any{nil, map[string]any{"message": "target exploded"}}
			return ch
		}}
		a, err := NewAdapter(h)
		require.NoError(t, err)

		value, evalErr := a.Evaluate(context.Background(), "X")
		assert.Nil(t, value)
		require.NotNil(t, evalErr)
		assert.Equal(t, "target exploded", evalErr.Message)
	})
}

func TestAdapterPromiseClosedWithoutValue(t *testing.T) {
	h := &fakePromiseHost{fn: func(code string) <-chan any {
		ch := make(chan any)
		close(ch)
		return ch
	}}
	a, err := NewAdapter(h)
	require.NoError(t, err)

	_, evalErr := a.Evaluate(context.Background(), "X")
	require.NotNil(t, evalErr)
}

func TestAdapterHostPanicBecomesError(t *testing.T) {
	h := &fakeCallbackHost{fn: func(code string, done func(any, map[string]any)) {
		panic("host blew up")
	}}
	a, err := NewAdapter(h)
	require.NoError(t, err)

	value, evalErr := a.Evaluate(context.Background(), "X")
	assert.Nil(t, value)
	require.NotNil(t, evalErr)
	assert.Contains(t, evalErr.Message, "host blew up")
}

func TestAdapterContextCancellation(t *testing.T) {
	h := &fakePromiseHost{fn: func(code string) <-chan any {
		return make(chan any) // never resolves
	}}
	a, err := NewAdapter(h)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, evalErr := a.Evaluate(ctx, "X")
	require.NotNil(t, evalErr)
	assert.Contains(t, evalErr.Message, "abandoned")
}

func TestAdapterDualHostPrefersCallback(t *testing.T) {
	// The convention is a property of the adapter, fixed at construction.
	h := &dualHost{}
	a, err := NewAdapter(h)
	require.NoError(t, err)

	value, evalErr := a.Evaluate(context.Background(), "X")
	assert.Nil(t, evalErr)
	assert.Equal(t, "from callback", value)
	assert.True(t, h.callbackUsed)
	assert.False(t, h.promiseUsed)
}
