package sniff

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
)

// Class is the classifier's verdict for one file.
type Class string

const (
	Text    Class = "text"
	Binary  Class = "binary"
	Image   Class = "image"
	Unknown Class = "unknown"
)

// Options holds the classifier's heuristic knobs. The thresholds are
// empirical, not derived; callers may override them.
type Options struct {
	SampleSize       int     // leading bytes inspected by the heuristics
	HighByteRatio    float64 // high-bit bytes above this ratio means binary
	ControlByteRatio float64 // non-whitespace control bytes above this ratio means binary
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		SampleSize:       4096,
		HighByteRatio:    0.30,
		ControlByteRatio: 0.10,
	}
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".svg": true, ".bmp": true, ".ico": true, ".avif": true, ".tiff": true,
}

var textExts = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".json": true, ".js": true,
	".mjs": true, ".ts": true, ".tsx": true, ".jsx": true, ".css": true,
	".scss": true, ".html": true, ".htm": true, ".xml": true, ".yaml": true,
	".yml": true, ".toml": true, ".ini": true, ".cfg": true, ".conf": true,
	".csv": true, ".tsv": true, ".log": true, ".sh": true, ".bash": true,
	".py": true, ".rb": true, ".go": true, ".rs": true, ".c": true, ".h": true,
	".cpp": true, ".hpp": true, ".java": true, ".kt": true, ".sql": true,
	".env": true, ".gitignore": true, ".editorconfig": true, ".lock": true,
	".svelte": true, ".vue": true, ".graphql": true, ".proto": true,
}

var binaryExts = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".wasm": true, ".zip": true, ".tar": true, ".gz": true, ".bz2": true,
	".xz": true, ".7z": true, ".rar": true, ".pdf": true, ".doc": true,
	".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".sqlite": true, ".db": true, ".o": true, ".a": true, ".class": true,
	".mp3": true, ".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".wav": true, ".ogg": true, ".flac": true, ".woff": true, ".woff2": true,
	".ttf": true, ".otf": true, ".eot": true,
}

var textMIMEs = map[string]bool{
	"application/json":       true,
	"application/javascript": true,
	"application/xml":        true,
}

var binaryMIMEs = map[string]bool{
	"application/octet-stream":     true,
	"application/wasm":             true,
	"application/pdf":              true,
	"application/zip":              true,
	"application/gzip":             true,
	"application/x-tar":            true,
	"application/x-7z-compressed":  true,
	"application/x-rar-compressed": true,
	"application/x-sqlite3":        true,
}

// openers are leading sequences common to structured text formats:
// JSON/XML/HTML, scripts with shebangs or comments, SQL, INI, YAML
// front matter.
var openers = []string{"{", "[", "<", "#", "//", "/*", "--", ";", "---"}

// Classify determines the content class of a file given its name, its
// declared MIME type (often empty; the storage layer does not persist
// MIME metadata), its size, and a leading byte sample. Rules apply in
// order; the first match wins.
func Classify(name, declaredMIME string, size int64, sample []byte, opts Options) Class {
	ext := strings.ToLower(filepath.Ext(name))
	mime := normalizeMIME(declaredMIME)

	// Empty files are text regardless of name or declared type: there is
	// nothing to corrupt.
	if size == 0 {
		return Text
	}

	// 1. Known image by extension or declared type.
	if imageExts[ext] || strings.HasPrefix(mime, "image/") {
		return Image
	}

	// 2. Declared text type.
	if strings.HasPrefix(mime, "text/") || textMIMEs[mime] {
		return Text
	}

	// 3. Declared always-binary category.
	if binaryMIMEs[mime] ||
		strings.HasPrefix(mime, "audio/") ||
		strings.HasPrefix(mime, "video/") ||
		strings.HasPrefix(mime, "application/vnd.") {
		return Binary
	}

	// 4. No informative declared type: extension allow-lists.
	if textExts[ext] {
		return Text
	}
	if binaryExts[ext] {
		return Binary
	}

	// Non-empty file with no sample to inspect: nothing left to decide on.
	if len(sample) == 0 {
		return Unknown
	}

	// 5. Content heuristics over the leading sample.
	if opts.SampleSize > 0 && len(sample) > opts.SampleSize {
		sample = sample[:opts.SampleSize]
	}

	// 5a. Magic-byte signature of a known binary container.
	if magicBinary(sample) {
		return Binary
	}

	// 5b. Byte-class statistics.
	stats := sampleStats(sample)
	if stats.nul > 0 {
		return Binary
	}
	n := float64(len(sample))
	if float64(stats.high)/n > opts.HighByteRatio {
		return Binary
	}
	if float64(stats.control)/n > opts.ControlByteRatio {
		return Binary
	}

	// 5c. Leading content looks like a structured text format.
	trimmed := strings.TrimSpace(string(decodeLossy(sample)))
	for _, o := range openers {
		if strings.HasPrefix(trimmed, o) {
			return Text
		}
	}

	// 5d. A perfectly clean sample is text.
	if stats.high == 0 && stats.control == 0 {
		return Text
	}

	// 5e. Refuse to guess.
	return Unknown
}

// DetectEncoding returns the best-guess charset name for a text sample,
// or "" when detection fails.
func DetectEncoding(sample []byte) string {
	if len(sample) == 0 {
		return ""
	}
	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil {
		return ""
	}
	return result.Charset
}

type byteStats struct {
	nul     int
	high    int
	control int
}

func sampleStats(sample []byte) byteStats {
	var s byteStats
	for _, b := range sample {
		switch {
		case b == 0:
			s.nul++
		case b >= 0x80:
			s.high++
		case b < 0x20 && !isWhitespace(b):
			s.control++
		}
	}
	return s
}

func isWhitespace(b byte) bool {
	switch b {
	case '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// magicBinary reports whether the sample's leading bytes match the
// signature of a known binary container format. Detection is delegated to
// mimetype's signature table (PNG, JPEG, GIF, PDF, ZIP family, ELF, WASM,
// SQLite, GZip, BZip2, XZ, RIFF, OGG, class files, PE, 7-Zip, ...); a
// match whose type hierarchy never reaches text/plain is a binary
// container.
func magicBinary(sample []byte) bool {
	mt := mimetype.Detect(sample)
	if mt.Is("application/octet-stream") {
		// The fallback type: no signature matched, inconclusive.
		return false
	}
	for t := mt; t != nil; t = t.Parent() {
		if t.Is("text/plain") {
			return false
		}
	}
	return true
}

// decodeLossy replaces invalid UTF-8 sequences so the opener test can run
// on arbitrary bytes without choking.
func decodeLossy(sample []byte) []byte {
	if utf8.Valid(sample) {
		return sample
	}
	return []byte(strings.ToValidUTF8(string(sample), "�"))
}

func normalizeMIME(m string) string {
	m = strings.TrimSpace(strings.ToLower(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	return m
}
