package vfs

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandboxfs/internal/bridge"
	"github.com/GriffinCanCode/sandboxfs/internal/logging"
)

// FS exposes the file operations as typed Go methods. All methods are
// safe for concurrent use; isolation between in-flight operations is
// the dispatcher's concern.
type FS struct {
	dispatcher *bridge.Dispatcher
	stager     *bridge.Stager
	log        *logging.Logger
}

// New creates the operation facade. log may be nil.
func New(dispatcher *bridge.Dispatcher, stager *bridge.Stager, log *logging.Logger) *FS {
	if log == nil {
		log = logging.Nop()
	}
	return &FS{dispatcher: dispatcher, stager: stager, log: log}
}

// List returns the entries of a directory, directories first.
func (f *FS) List(ctx context.Context, p string) ([]FileEntry, error) {
	value, err := f.dispatcher.Dispatch(ctx, listBody(p))
	if err != nil {
		return nil, err
	}
	return decode[[]FileEntry](value)
}

// Read returns a file's content as a string. Binary or oversized
// content comes back as a sentinel string describing it instead; use
// ReadWithMeta to get the actual bytes.
func (f *FS) Read(ctx context.Context, p string) (string, error) {
	value, err := f.dispatcher.Dispatch(ctx, readBody(p))
	if err != nil {
		return "", err
	}
	content, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("read of %s completed with non-string value %T", p, value)
	}
	return content, nil
}

// ReadWithMeta returns a file's content together with its detected
// type, size, and encoding.
func (f *FS) ReadWithMeta(ctx context.Context, p string, opts ReadOptions) (FileReadResult, error) {
	value, err := f.dispatcher.Dispatch(ctx, readMetaBody(p, opts.ForceText))
	if err != nil {
		return FileReadResult{}, err
	}
	return decode[FileReadResult](value)
}

// ReadBytes reads a file and decodes it to raw bytes regardless of its
// classification.
func (f *FS) ReadBytes(ctx context.Context, p string) ([]byte, error) {
	res, err := f.ReadWithMeta(ctx, p, ReadOptions{})
	if err != nil {
		return nil, err
	}
	if !res.IsBase64 {
		return []byte(res.Content), nil
	}
	data, err := base64.StdEncoding.DecodeString(res.Content)
	if err != nil {
		return nil, fmt.Errorf("decoding content of %s: %w", p, err)
	}
	return data, nil
}

// Write stores data at p, creating parent directories as needed.
// Binary writes stage their payload in chunks before a final assembling
// operation; text writes go inline.
func (f *FS) Write(ctx context.Context, p string, data []byte, binary bool) error {
	if binary {
		return f.WriteBinary(ctx, p, data)
	}
	return f.WriteText(ctx, p, string(data))
}

// WriteText stores content at p as text.
func (f *FS) WriteText(ctx context.Context, p, content string) error {
	_, err := f.dispatcher.Dispatch(ctx, writeTextBody(p, content))
	return err
}

// WriteBinary stores raw bytes at p. The payload crosses the bridge as
// staged base64 chunks and is reassembled inside the target.
func (f *FS) WriteBinary(ctx context.Context, p string, data []byte) error {
	staged, err := f.stager.Stage(ctx, base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return fmt.Errorf("staging payload for %s: %w", p, err)
	}

	f.log.Debug("binary write assembled",
		zap.String("path", p),
		zap.Int("chunks", staged.ChunkCount),
		zap.Int("bytes", len(data)))

	_, err = f.dispatcher.Dispatch(ctx, writeBinaryBody(p, staged.Key, staged.ChunkCount))
	return err
}

// Rename gives the entry at p a new base name in its current directory.
func (f *FS) Rename(ctx context.Context, p, newName string) error {
	_, err := f.dispatcher.Dispatch(ctx, renameBody(p, newName))
	return err
}

// Move relocates a file or directory subtree to a new path.
func (f *FS) Move(ctx context.Context, src, dst string) error {
	_, err := f.dispatcher.Dispatch(ctx, moveBody(src, dst))
	return err
}

// Create makes an empty file or directory. kind is KindFile or
// KindDirectory.
func (f *FS) Create(ctx context.Context, p, kind string) error {
	_, err := f.dispatcher.Dispatch(ctx, createBody(p, kind))
	return err
}

// Delete removes the entry at p; directories are removed recursively.
func (f *FS) Delete(ctx context.Context, p string) error {
	_, err := f.dispatcher.Dispatch(ctx, deleteBody(p))
	return err
}

// Exists reports whether an entry is present at p.
func (f *FS) Exists(ctx context.Context, p string) (bool, error) {
	value, err := f.dispatcher.Dispatch(ctx, existsBody(p))
	if err != nil {
		return false, err
	}
	present, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("exists check of %s completed with non-bool value %T", p, value)
	}
	return present, nil
}

// GetStorageEstimate reports target-side usage against its quota.
func (f *FS) GetStorageEstimate(ctx context.Context) (StorageEstimate, error) {
	value, err := f.dispatcher.Dispatch(ctx, estimateBody())
	if err != nil {
		return StorageEstimate{}, err
	}
	return decode[StorageEstimate](value)
}

// Download asks the target to materialize the file for its download
// hook. The bytes never cross the bridge.
func (f *FS) Download(ctx context.Context, p string) error {
	_, err := f.dispatcher.Dispatch(ctx, downloadBody(p))
	return err
}

// decode round-trips an untyped completion value through JSON into the
// typed result shape.
func decode[T any](value any) (T, error) {
	var out T
	raw, err := sonic.Marshal(value)
	if err != nil {
		return out, fmt.Errorf("encoding completion value: %w", err)
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decoding completion value: %w", err)
	}
	return out, nil
}
