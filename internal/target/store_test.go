package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreWriteRead(t *testing.T) {
	s := NewStore(0)

	require.NoError(t, s.Write("a/b.txt", []byte("hello")))

	data, err := s.Read("a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	// Parent directories exist implicitly.
	assert.True(t, s.Exists("a"))
	assert.True(t, s.Exists("/a/b.txt"))
	assert.False(t, s.Exists("a/c.txt"))
}

func TestStoreReadErrors(t *testing.T) {
	s := NewStore(0)
	require.NoError(t, s.Write("dir/file", []byte("x")))

	_, err := s.Read("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Read("dir")
	assert.ErrorIs(t, err, ErrIsDirectory)
}

func TestStoreList(t *testing.T) {
	s := NewStore(0)
	require.NoError(t, s.Write("docs/readme.md", []byte("hi")))
	require.NoError(t, s.Write("docs/img/logo.png", []byte{1, 2, 3}))
	require.NoError(t, s.Write("notes.txt", []byte("n")))

	entries, err := s.List("")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Directories first, then files, each sorted.
	assert.Equal(t, Entry{Name: "docs", Kind: KindDirectory}, entries[0])
	assert.Equal(t, Entry{Name: "notes.txt", Kind: KindFile, Size: 1}, entries[1])

	entries, err = s.List("docs")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "img", entries[0].Name)
	assert.Equal(t, "readme.md", entries[1].Name)

	_, err = s.List("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.List("notes.txt")
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestStoreCreate(t *testing.T) {
	s := NewStore(0)

	require.NoError(t, s.Mkdir("a/b"))
	assert.True(t, s.Exists("a/b"))
	assert.ErrorIs(t, s.Mkdir("a/b"), ErrExists)

	require.NoError(t, s.CreateFile("a/b/f.txt"))
	assert.ErrorIs(t, s.CreateFile("a/b/f.txt"), ErrExists)

	data, err := s.Read("a/b/f.txt")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestStoreRemove(t *testing.T) {
	s := NewStore(0)
	require.NoError(t, s.Write("a/b/c.txt", []byte("abc")))
	require.NoError(t, s.Write("a/d.txt", []byte("d")))

	require.NoError(t, s.Remove("a/b"))
	assert.False(t, s.Exists("a/b"))
	assert.False(t, s.Exists("a/b/c.txt"))
	assert.True(t, s.Exists("a/d.txt"))

	assert.ErrorIs(t, s.Remove("a/b"), ErrNotFound)

	// Usage shrinks with removal.
	require.NoError(t, s.Remove("a"))
	assert.Equal(t, int64(0), s.Estimate().Usage)
}

func TestStoreMove(t *testing.T) {
	s := NewStore(0)
	require.NoError(t, s.Write("src/a.txt", []byte("a")))
	require.NoError(t, s.Write("src/sub/b.txt", []byte("b")))

	require.NoError(t, s.Move("src", "dst"))
	assert.False(t, s.Exists("src"))
	assert.True(t, s.Exists("dst/a.txt"))
	assert.True(t, s.Exists("dst/sub/b.txt"))

	require.NoError(t, s.Move("dst/a.txt", "dst/renamed.txt"))
	assert.True(t, s.Exists("dst/renamed.txt"))

	assert.ErrorIs(t, s.Move("dst", "dst/inside"), ErrInvalidPath)
	assert.ErrorIs(t, s.Move("missing", "x"), ErrNotFound)

	require.NoError(t, s.Write("occupied", []byte("o")))
	assert.ErrorIs(t, s.Move("dst", "occupied"), ErrExists)
}

func TestStoreMoveThroughFile(t *testing.T) {
	s := NewStore(0)
	require.NoError(t, s.Write("a", []byte("file")))
	require.NoError(t, s.Write("b", []byte("payload")))

	assert.ErrorIs(t, s.Move("b", "a/c"), ErrNotDirectory)

	// The rejected move changes nothing: "a" stays a plain file, never a
	// directory, and "b" stays put.
	data, err := s.Read("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("file"), data)
	_, err = s.List("a")
	assert.ErrorIs(t, err, ErrNotDirectory)
	assert.False(t, s.Exists("a/c"))
	assert.True(t, s.Exists("b"))

	// Directory subtrees are rejected the same way, including deeper
	// destinations routed through the file.
	require.NoError(t, s.Mkdir("dir"))
	assert.ErrorIs(t, s.Move("dir", "a/d/e"), ErrNotDirectory)
	assert.True(t, s.Exists("dir"))
}

func TestStoreCreateFileConcurrentSamePath(t *testing.T) {
	s := NewStore(0)

	const workers = 16
	start := make(chan struct{})
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			<-start
			errs <- s.CreateFile("shared.txt")
		}()
	}
	close(start)

	created := 0
	for i := 0; i < workers; i++ {
		if err := <-errs; err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, ErrExists)
		}
	}
	assert.Equal(t, 1, created, "exactly one concurrent create may win")
}

func TestStoreQuota(t *testing.T) {
	s := NewStore(10)

	require.NoError(t, s.Write("f", []byte("12345")))
	assert.Equal(t, Estimate{Usage: 5, Quota: 10}, s.Estimate())

	assert.ErrorIs(t, s.Write("g", []byte("123456789")), ErrQuotaExceeded)

	// Overwriting counts the delta, not the sum.
	require.NoError(t, s.Write("f", []byte("1234567890")))
	assert.Equal(t, int64(10), s.Estimate().Usage)
}

func TestStorePathNormalization(t *testing.T) {
	s := NewStore(0)
	require.NoError(t, s.Write("/a//b/../c.txt", []byte("x")))
	assert.True(t, s.Exists("a/c.txt"))

	// Writing to the root is rejected.
	assert.ErrorIs(t, s.Write("/", []byte("x")), ErrInvalidPath)
	assert.ErrorIs(t, s.Write("..", []byte("x")), ErrInvalidPath)
}

func TestStoreWriteThroughFile(t *testing.T) {
	s := NewStore(0)
	require.NoError(t, s.Write("f", []byte("x")))
	assert.ErrorIs(t, s.Write("f/child", []byte("y")), ErrNotDirectory)
}
