package target

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandboxfs/internal/logging"
	"github.com/GriffinCanCode/sandboxfs/internal/sniff"
)

var ErrClosed = errors.New("target runtime is closed")

// Config defines target context configuration.
type Config struct {
	EvalTimeout        time.Duration // per-evaluation interrupt deadline
	Quota              int64         // storage quota in bytes
	LargeTextThreshold int64         // text above this size reads as base64 metadata
	TaskQueueSize      int           // pending deferred tasks
	Sniff              sniff.Options // classifier thresholds
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		EvalTimeout:        5 * time.Second,
		Quota:              1 << 30,
		LargeTextThreshold: 256 * 1024,
		TaskQueueSize:      256,
		Sniff:              sniff.DefaultOptions(),
	}
}

// FileMeta is the shape readMeta hands back to generated code. Field
// names follow the json tags inside the VM.
type FileMeta struct {
	Content      string `json:"content"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	IsBase64     bool   `json:"isBase64"`
	DetectedType string `json:"detectedType"`
	IsLargeText  bool   `json:"isLargeText"`
	Encoding     string `json:"encoding"`
}

// Runtime wraps a hardened goja VM exposing the __sfs host object.
//
// Eval is the synchronous primitive; deferred callbacks scheduled through
// __sfs.defer run later on a background loop, which is what makes
// target-side operations asynchronous relative to the evaluation that
// submitted them.
type Runtime struct {
	vm    *goja.Runtime
	cfg   Config
	store *Store
	log   *logging.Logger

	mu        sync.Mutex
	tasks     chan func()
	closed    bool
	closeOnce sync.Once

	// OnDownload receives the materialized bytes of a downloaded file.
	// It runs during evaluation and must not call back into the runtime.
	OnDownload func(name string, data []byte)
}

// New creates a sandboxed target runtime.
func New(cfg Config, log *logging.Logger) (*Runtime, error) {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.TaskQueueSize <= 0 {
		cfg.TaskQueueSize = 256
	}
	if cfg.LargeTextThreshold <= 0 {
		cfg.LargeTextThreshold = 256 * 1024
	}
	if cfg.Sniff.SampleSize <= 0 {
		cfg.Sniff = sniff.DefaultOptions()
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	r := &Runtime{
		vm:    vm,
		cfg:   cfg,
		store: NewStore(cfg.Quota),
		log:   log,
		tasks: make(chan func(), cfg.TaskQueueSize),
	}
	r.OnDownload = func(name string, data []byte) {
		log.Info("download requested", zap.String("name", name), zap.Int("bytes", len(data)))
	}

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}

	go r.run()
	return r, nil
}

// Store exposes the underlying storage, mainly for tests and the CLI.
func (r *Runtime) Store() *Store {
	return r.store
}

// Eval runs code synchronously and returns its exported completion value.
func (r *Runtime) Eval(code string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	if r.cfg.EvalTimeout > 0 {
		timer := time.AfterFunc(r.cfg.EvalTimeout, func() {
			r.vm.Interrupt("evaluation timeout exceeded")
		})
		defer func() {
			timer.Stop()
			r.vm.ClearInterrupt()
		}()
	}

	val, err := r.vm.RunString(code)
	if err != nil {
		return nil, err
	}
	return export(val), nil
}

// Close stops the deferred-task loop. Work already queued may be dropped;
// the controlling side has no delivery guarantee across teardown.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeOnce.Do(func() {
		r.closed = true
		close(r.tasks)
	})
	return nil
}

func (r *Runtime) run() {
	for fn := range r.tasks {
		fn()
	}
}

func (r *Runtime) setupGlobals() error {
	// No escape hatches out of the sandbox.
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())
	r.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	r.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	console := r.vm.NewObject()
	console.Set("log", r.makeConsoleFunc("log"))
	console.Set("warn", r.makeConsoleFunc("warn"))
	console.Set("error", r.makeConsoleFunc("error"))
	console.Set("info", r.makeConsoleFunc("info"))
	r.vm.Set("console", console)

	sfs := r.vm.NewObject()
	sfs.Set("list", r.store.List)
	sfs.Set("readMeta", r.readMeta)
	sfs.Set("writeText", r.writeText)
	sfs.Set("writeBinary", r.writeBinary)
	sfs.Set("create", r.create)
	sfs.Set("remove", r.store.Remove)
	sfs.Set("rename", r.rename)
	sfs.Set("move", r.store.Move)
	sfs.Set("exists", r.store.Exists)
	sfs.Set("estimate", r.store.Estimate)
	sfs.Set("download", r.download)
	sfs.Set("defer", r.deferTask)
	return r.vm.Set("__sfs", sfs)
}

// deferTask schedules a JS callback onto the background loop. The
// callback runs under the VM lock after the submitting evaluation has
// returned.
func (r *Runtime) deferTask(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(r.vm.NewTypeError("defer requires a function"))
	}
	if r.closed {
		panic(r.vm.ToValue("runtime is closed"))
	}

	task := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			return
		}
		if _, err := fn(goja.Undefined()); err != nil {
			// The wrapper template catches operation errors itself; an
			// error here means the wrapper is broken.
			r.log.Warn("deferred task failed", zap.Error(err))
		}
	}

	select {
	case r.tasks <- task:
	default:
		panic(r.vm.ToValue("deferred task queue is full"))
	}
	return goja.Undefined()
}

func (r *Runtime) readMeta(p string, forceText bool) (*FileMeta, error) {
	data, err := r.store.Read(p)
	if err != nil {
		return nil, err
	}

	sample := data
	if r.cfg.Sniff.SampleSize > 0 && len(sample) > r.cfg.Sniff.SampleSize {
		sample = sample[:r.cfg.Sniff.SampleSize]
	}

	class := sniff.Classify(path.Base(p), "", int64(len(data)), sample, r.cfg.Sniff)
	meta := &FileMeta{
		MimeType:     mimeTypeOf(data),
		Size:         int64(len(data)),
		DetectedType: string(class),
	}

	if forceText || class == sniff.Text {
		meta.Content = string(data)
		meta.IsLargeText = int64(len(data)) > r.cfg.LargeTextThreshold
		meta.Encoding = sniff.DetectEncoding(sample)
		return meta, nil
	}

	meta.Content = base64.StdEncoding.EncodeToString(data)
	meta.IsBase64 = true
	return meta, nil
}

func (r *Runtime) writeText(p, content string) error {
	return r.store.Write(p, []byte(content))
}

func (r *Runtime) writeBinary(p, b64 string) error {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("invalid base64 payload for %s: %w", p, err)
	}
	return r.store.Write(p, data)
}

func (r *Runtime) create(p, kind string) error {
	switch EntryKind(kind) {
	case KindFile:
		return r.store.CreateFile(p)
	case KindDirectory:
		return r.store.Mkdir(p)
	default:
		return fmt.Errorf("unknown entry kind %q: %w", kind, ErrInvalidPath)
	}
}

func (r *Runtime) rename(p, newName string) error {
	if newName == "" || newName != path.Base(newName) {
		return fmt.Errorf("invalid new name %q: %w", newName, ErrInvalidPath)
	}
	dir := parentOf(normalize(p))
	return r.store.Move(p, path.Join(dir, newName))
}

func (r *Runtime) download(p string) error {
	data, err := r.store.Read(p)
	if err != nil {
		return err
	}
	if r.OnDownload != nil {
		r.OnDownload(path.Base(normalize(p)), data)
	}
	return nil
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}

		entry := r.log.With(zap.String("source", "console"))
		switch level {
		case "warn":
			entry.Warn(msg)
		case "error":
			entry.Error(msg)
		default:
			entry.Debug(msg)
		}
		return goja.Undefined()
	}
}

func mimeTypeOf(data []byte) string {
	if len(data) == 0 {
		return "text/plain"
	}
	return mimetype.Detect(data).String()
}

func export(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}
