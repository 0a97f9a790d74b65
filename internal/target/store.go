package target

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNotFound      = errors.New("no such file or directory")
	ErrExists        = errors.New("file or directory already exists")
	ErrIsDirectory   = errors.New("is a directory")
	ErrNotDirectory  = errors.New("not a directory")
	ErrInvalidPath   = errors.New("invalid path")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// EntryKind distinguishes files from directories.
type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
)

// Entry describes one directory listing entry.
type Entry struct {
	Name string    `json:"name"`
	Kind EntryKind `json:"kind"`
	Size int64     `json:"size"`
}

// Estimate reports storage usage against the configured quota.
type Estimate struct {
	Usage int64 `json:"usage"`
	Quota int64 `json:"quota"`
}

// Store is the target context's session-scoped hierarchical storage.
// Parent directories come into existence implicitly on write, the way
// browser origin-scoped storage behaves.
type Store struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
	usage int64
	quota int64
}

// NewStore creates a store with the given quota in bytes.
func NewStore(quota int64) *Store {
	if quota <= 0 {
		quota = 1 << 30
	}
	return &Store{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
		quota: quota,
	}
}

// normalize cleans p into a rooted-relative key. The empty string is the
// root directory.
func normalize(p string) string {
	clean := path.Clean("/" + strings.TrimSpace(p))
	return strings.TrimPrefix(clean, "/")
}

func parentOf(key string) string {
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// Exists reports whether a file or directory exists at p.
func (s *Store) Exists(p string) bool {
	key := normalize(p)
	if key == "" {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.existsLocked(key)
}

func (s *Store) existsLocked(key string) bool {
	if _, ok := s.files[key]; ok {
		return true
	}
	_, ok := s.dirs[key]
	return ok
}

// Read returns the contents of the file at p.
func (s *Store) Read(p string) ([]byte, error) {
	key := normalize(p)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if data, ok := s.files[key]; ok {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	if _, ok := s.dirs[key]; ok || key == "" {
		return nil, fmt.Errorf("%s: %w", p, ErrIsDirectory)
	}
	return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
}

// Write stores data at p, creating parent directories implicitly and
// overwriting any existing file.
func (s *Store) Write(p string, data []byte) error {
	key := normalize(p)
	if key == "" {
		return fmt.Errorf("%s: %w", p, ErrInvalidPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dirs[key]; ok {
		return fmt.Errorf("%s: %w", p, ErrIsDirectory)
	}
	if err := s.checkAncestorsLocked(key); err != nil {
		return err
	}

	old := int64(len(s.files[key]))
	delta := int64(len(data)) - old
	if s.usage+delta > s.quota {
		return fmt.Errorf("%s: %w (usage %d + %d > quota %d)", p, ErrQuotaExceeded, s.usage, delta, s.quota)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	s.files[key] = stored
	s.usage += delta
	s.addParentsLocked(key)
	return nil
}

// Mkdir creates a directory at p (and its parents).
func (s *Store) Mkdir(p string) error {
	key := normalize(p)
	if key == "" {
		return fmt.Errorf("%s: %w", p, ErrExists)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.existsLocked(key) {
		return fmt.Errorf("%s: %w", p, ErrExists)
	}
	if err := s.checkAncestorsLocked(key); err != nil {
		return err
	}
	s.dirs[key] = struct{}{}
	s.addParentsLocked(key)
	return nil
}

// CreateFile creates an empty file at p, failing if anything exists there.
func (s *Store) CreateFile(p string) error {
	key := normalize(p)
	if key == "" {
		return fmt.Errorf("%s: %w", p, ErrInvalidPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.existsLocked(key) {
		return fmt.Errorf("%s: %w", p, ErrExists)
	}
	if err := s.checkAncestorsLocked(key); err != nil {
		return err
	}
	s.files[key] = []byte{}
	s.addParentsLocked(key)
	return nil
}

// Remove deletes the file at p, or the directory at p recursively.
func (s *Store) Remove(p string) error {
	key := normalize(p)
	if key == "" {
		return fmt.Errorf("%s: %w", p, ErrInvalidPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if data, ok := s.files[key]; ok {
		delete(s.files, key)
		s.usage -= int64(len(data))
		return nil
	}
	if _, ok := s.dirs[key]; !ok {
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}

	prefix := key + "/"
	for k, data := range s.files {
		if strings.HasPrefix(k, prefix) {
			delete(s.files, k)
			s.usage -= int64(len(data))
		}
	}
	for k := range s.dirs {
		if k == key || strings.HasPrefix(k, prefix) {
			delete(s.dirs, k)
		}
	}
	return nil
}

// Move relocates a file or directory subtree from oldPath to newPath.
func (s *Store) Move(oldPath, newPath string) error {
	oldKey := normalize(oldPath)
	newKey := normalize(newPath)
	if oldKey == "" || newKey == "" {
		return fmt.Errorf("%s -> %s: %w", oldPath, newPath, ErrInvalidPath)
	}
	if oldKey == newKey {
		return nil
	}
	if strings.HasPrefix(newKey, oldKey+"/") {
		return fmt.Errorf("cannot move %s into itself: %w", oldPath, ErrInvalidPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.existsLocked(newKey) {
		return fmt.Errorf("%s: %w", newPath, ErrExists)
	}
	if err := s.checkAncestorsLocked(newKey); err != nil {
		return err
	}

	if data, ok := s.files[oldKey]; ok {
		delete(s.files, oldKey)
		s.files[newKey] = data
		s.addParentsLocked(newKey)
		return nil
	}
	if _, ok := s.dirs[oldKey]; !ok {
		return fmt.Errorf("%s: %w", oldPath, ErrNotFound)
	}

	prefix := oldKey + "/"
	moved := make(map[string][]byte)
	for k, data := range s.files {
		if strings.HasPrefix(k, prefix) {
			moved[newKey+"/"+k[len(prefix):]] = data
			delete(s.files, k)
		}
	}
	for k, data := range moved {
		s.files[k] = data
	}
	movedDirs := []string{newKey}
	for k := range s.dirs {
		if k == oldKey || strings.HasPrefix(k, prefix) {
			delete(s.dirs, k)
			if k != oldKey {
				movedDirs = append(movedDirs, newKey+"/"+k[len(prefix):])
			}
		}
	}
	for _, k := range movedDirs {
		s.dirs[k] = struct{}{}
	}
	s.addParentsLocked(newKey)
	return nil
}

// List returns the direct children of the directory at p, directories
// first, each group sorted by name.
func (s *Store) List(p string) ([]Entry, error) {
	key := normalize(p)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if key != "" {
		if _, ok := s.files[key]; ok {
			return nil, fmt.Errorf("%s: %w", p, ErrNotDirectory)
		}
		if _, ok := s.dirs[key]; !ok {
			return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
	}

	var entries []Entry
	for k := range s.dirs {
		if parentOf(k) == key {
			entries = append(entries, Entry{Name: path.Base(k), Kind: KindDirectory})
		}
	}
	for k, data := range s.files {
		if parentOf(k) == key {
			entries = append(entries, Entry{Name: path.Base(k), Kind: KindFile, Size: int64(len(data))})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind == KindDirectory
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Estimate reports current usage against the quota.
func (s *Store) Estimate() Estimate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Estimate{Usage: s.usage, Quota: s.quota}
}

func (s *Store) addParentsLocked(key string) {
	for dir := parentOf(key); dir != ""; dir = parentOf(dir) {
		s.dirs[dir] = struct{}{}
	}
}

// checkAncestorsLocked rejects paths that route through an existing file.
func (s *Store) checkAncestorsLocked(key string) error {
	for dir := parentOf(key); dir != ""; dir = parentOf(dir) {
		if _, ok := s.files[dir]; ok {
			return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
		}
	}
	return nil
}
