package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout marks operations abandoned while still pending. The
	// target-side work may still run to completion invisibly; this is
	// "unknown outcome", not "definitely failed".
	ErrTimeout = errors.New("operation timed out while still pending")

	// ErrUnsupportedHost is returned when a host exposes neither
	// evaluation convention.
	ErrUnsupportedHost = errors.New("host implements no supported evaluation convention")
)

// Kind classifies dispatch failures.
type Kind int

const (
	// KindTarget is a logical failure reported by the injected code
	// itself, e.g. path not found.
	KindTarget Kind = iota
	// KindTransport means the evaluation primitive failed; immediately
	// terminal, no retry.
	KindTransport
	// KindTimeout means the attempt budget ran out while still pending.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindTarget:
		return "target"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// OpError is a failed dispatched operation.
type OpError struct {
	ID      string
	Kind    Kind
	Message string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("operation %s failed (%s): %s", e.ID, e.Kind, e.Message)
}

// Unwrap lets callers distinguish timeouts with errors.Is(err, ErrTimeout).
func (e *OpError) Unwrap() error {
	if e.Kind == KindTimeout {
		return ErrTimeout
	}
	return nil
}

// EvalError is a transport-level evaluation failure, the error half of
// the adapter's normalized tuple.
type EvalError struct {
	Message string
}

func (e *EvalError) Error() string {
	return e.Message
}
