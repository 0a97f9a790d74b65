package vfs

// BinarySentinelPrefix marks a plain Read of content that cannot be
// returned as a string. The full sentinel carries the MIME type and
// size; callers wanting bytes must use ReadWithMeta.
const BinarySentinelPrefix = "[BINARY_OR_LARGE]"

// Entry kinds accepted by Create and reported by List.
const (
	KindFile      = "file"
	KindDirectory = "directory"
)

// FileEntry is one row of a directory listing.
type FileEntry struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Size int64  `json:"size"`
}

// FileReadResult is the full metadata form of a read. Content holds
// text directly, or base64 when IsBase64 is set.
type FileReadResult struct {
	Content      string `json:"content"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	IsBase64     bool   `json:"isBase64"`
	DetectedType string `json:"detectedType"`
	IsLargeText  bool   `json:"isLargeText"`
	Encoding     string `json:"encoding"`
}

// StorageEstimate reports target-side storage usage against its quota.
type StorageEstimate struct {
	Usage int64 `json:"usage"`
	Quota int64 `json:"quota"`
}

// ReadOptions tunes ReadWithMeta. ForceText returns raw content as a
// string even when classification says binary.
type ReadOptions struct {
	ForceText bool
}
