package bridge

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandboxfs/internal/escape"
	"github.com/GriffinCanCode/sandboxfs/internal/logging"
	"github.com/GriffinCanCode/sandboxfs/internal/monitoring"
	"github.com/GriffinCanCode/sandboxfs/internal/shared/id"
)

const (
	statusPending = "pending"
	statusDone    = "done"
	statusError   = "error"
)

// Config tunes the polling dispatcher. Interval and attempt budget trade
// latency against reliability differently across host runtimes, so they
// are configuration rather than constants.
type Config struct {
	// PollInterval is the delay between scratch slot reads.
	PollInterval time.Duration
	// UnstablePollInterval replaces PollInterval when the target runtime
	// is known to misbehave under rapid repeated evaluation.
	UnstablePollInterval time.Duration
	// MaxAttempts bounds the polling loop; exhausting it abandons the
	// operation with a timeout-kind error.
	MaxAttempts int
	// TransientRetries bounds tolerance for null reads or poll-level
	// evaluation errors seen before the operation record first becomes
	// visible. Once the record has been observed, poll failures are
	// terminal.
	TransientRetries int
	// TransientBackoff is the extra delay after a transient poll failure.
	TransientBackoff time.Duration
	// Unstable selects the longer poll interval.
	Unstable bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:         50 * time.Millisecond,
		UnstablePollInterval: 250 * time.Millisecond,
		MaxAttempts:          100,
		TransientRetries:     3,
		TransientBackoff:     100 * time.Millisecond,
	}
}

// Dispatcher submits generated code to the target context and polls the
// operation's scratch slot until it observes a terminal status.
//
// Any number of operations may be in flight at once; each owns a
// uniquely named slot and there is no shared lock. Isolation rests
// entirely on id uniqueness.
type Dispatcher struct {
	adapter *Adapter
	cfg     Config
	ids     *id.Generator
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewDispatcher creates a dispatcher. log and metrics may be nil.
func NewDispatcher(adapter *Adapter, cfg Config, log *logging.Logger, metrics *monitoring.Metrics) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.UnstablePollInterval <= 0 {
		cfg.UnstablePollInterval = DefaultConfig().UnstablePollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Dispatcher{
		adapter: adapter,
		cfg:     cfg,
		ids:     id.Default(),
		log:     log,
		metrics: metrics,
	}
}

// Dispatch wraps body so the target records its progress in a scratch
// slot, submits it, and waits for a terminal status. body is the
// operation's JavaScript, executed as a function body inside the target;
// its return value becomes the operation result.
func (d *Dispatcher) Dispatch(ctx context.Context, body string) (any, error) {
	opID := d.ids.NewOpID().String()
	start := time.Now()
	log := &logging.Logger{Logger: d.log.With(zap.String("op_id", opID))}

	value, evalErr := d.adapter.Evaluate(ctx, submitCode(opID, body))
	if evalErr != nil {
		d.metrics.ObserveOp("transport_error", time.Since(start), 0)
		return nil, &OpError{ID: opID, Kind: KindTransport, Message: evalErr.Message}
	}

	// The operation may have completed synchronously before the first
	// poll; skip the polling loop entirely.
	if rec, ok := parseRecord(value); ok && rec.status != statusPending {
		d.cleanup(opID, log)
		return d.finish(opID, rec, start, 0)
	}

	interval := d.cfg.PollInterval
	if d.cfg.Unstable {
		interval = d.cfg.UnstablePollInterval
	}

	transient := 0
	recordSeen := false
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if err := sleep(ctx, interval); err != nil {
			d.cleanup(opID, log)
			return nil, fmt.Errorf("operation %s abandoned: %w", opID, err)
		}

		d.metrics.IncPoll()
		value, evalErr := d.adapter.Evaluate(ctx, pollCode(opID))

		rec, recOK := parseRecord(value)
		if evalErr != nil || !recOK {
			// A null read or polling exception right after submission can
			// be a timing artifact on flaky runtimes, not a real failure.
			// Once the record has been observed the slot is known to exist,
			// and any later poll failure is a real transport error.
			if !recordSeen && transient < d.cfg.TransientRetries {
				transient++
				log.Debug("transient poll failure",
					zap.Int("attempt", attempt),
					zap.Int("retry", transient))
				if err := sleep(ctx, d.cfg.TransientBackoff); err != nil {
					d.cleanup(opID, log)
					return nil, fmt.Errorf("operation %s abandoned: %w", opID, err)
				}
				continue
			}
			d.cleanup(opID, log)
			d.metrics.ObserveOp("transport_error", time.Since(start), attempt)
			msg := "operation record missing from scratch storage"
			if evalErr != nil {
				msg = evalErr.Message
			}
			return nil, &OpError{ID: opID, Kind: KindTransport, Message: msg}
		}

		recordSeen = true
		if rec.status == statusPending {
			continue
		}

		d.cleanup(opID, log)
		return d.finish(opID, rec, start, attempt)
	}

	d.cleanup(opID, log)
	d.metrics.ObserveOp("timeout", time.Since(start), d.cfg.MaxAttempts)
	return nil, &OpError{
		ID:   opID,
		Kind: KindTimeout,
		Message: fmt.Sprintf("still pending after %d polls; target-side work may still complete invisibly",
			d.cfg.MaxAttempts),
	}
}

func (d *Dispatcher) finish(opID string, rec record, start time.Time, polls int) (any, error) {
	if rec.status == statusDone {
		d.metrics.ObserveOp("done", time.Since(start), polls)
		return rec.result, nil
	}
	d.metrics.ObserveOp("error", time.Since(start), polls)
	return nil, &OpError{ID: opID, Kind: KindTarget, Message: rec.errMsg}
}

// cleanup deletes the scratch slot, best effort. Cleanup must never mask
// or delay the caller's result, so failures are only logged.
func (d *Dispatcher) cleanup(opID string, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, evalErr := d.adapter.Evaluate(ctx, cleanupCode(opID)); evalErr != nil {
		log.Warn("scratch slot cleanup failed", zap.String("error", evalErr.Message))
	}
}

// record is the scratch slot's wire shape: {status, result?, error?}.
type record struct {
	status string
	result any
	errMsg string
}

func parseRecord(value any) (record, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return record{}, false
	}
	status, ok := m["status"].(string)
	if !ok {
		return record{}, false
	}
	rec := record{status: status, result: m["result"]}
	if msg, ok := m["error"].(string); ok {
		rec.errMsg = msg
	}
	return rec, true
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submitCode wraps body so the target writes a pending record into the
// operation's slot synchronously, before any asynchronous work begins,
// then updates it to a terminal status when the deferred work settles.
func submitCode(opID, body string) string {
	slot := escape.Quote(opID)
	return fmt.Sprintf(`(function() {
  if (!globalThis.__sfsops) { globalThis.__sfsops = {}; }
  __sfsops[%s] = { status: 'pending' };
  __sfs.defer(function() {
    try {
      var result = (function() {
%s
      })();
      __sfsops[%s] = { status: 'done', result: result === undefined ? null : result };
    } catch (e) {
      __sfsops[%s] = { status: 'error', error: '' + ((e && e.message) ? e.message : e) };
    }
  });
  return __sfsops[%s];
})()`, slot, body, slot, slot, slot)
}

func pollCode(opID string) string {
	return fmt.Sprintf(`(function() {
  if (!globalThis.__sfsops) { return null; }
  var rec = __sfsops[%s];
  return rec === undefined ? null : rec;
})()`, escape.Quote(opID))
}

func cleanupCode(opID string) string {
	return fmt.Sprintf(`(function() {
  if (globalThis.__sfsops) { delete __sfsops[%s]; }
  return true;
})()`, escape.Quote(opID))
}
