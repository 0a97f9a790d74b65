package bridge

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sandboxfs/internal/host"
	"github.com/GriffinCanCode/sandboxfs/internal/target"
)

func newRuntimeStager(t *testing.T, chunkSize int) (*Stager, *target.Runtime) {
	t.Helper()
	d, rt := newRuntimeDispatcher(t, fastConfig())
	return NewStager(d, chunkSize, nil), rt
}

func chunkKeys(t *testing.T, rt *target.Runtime) int64 {
	t.Helper()
	n, err := rt.Eval(`globalThis.__sfschunks ? Object.keys(__sfschunks).length : 0`)
	require.NoError(t, err)
	return n.(int64)
}

func TestStageChunkCount(t *testing.T) {
	cases := []struct {
		name      string
		chunkSize int
		dataLen   int
		want      int
	}{
		{"empty payload stages one chunk", 4, 0, 1},
		{"under one chunk", 4, 3, 1},
		{"exact chunk boundary", 4, 8, 2},
		{"one past boundary", 4, 9, 3},
		{"default chunk size", DefaultChunkSize, DefaultChunkSize + 1, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newRuntimeStager(t, tc.chunkSize)

			staged, err := s.Stage(context.Background(), strings.Repeat("a", tc.dataLen))
			require.NoError(t, err)
			assert.Equal(t, tc.want, staged.ChunkCount)
		})
	}
}

func TestStageReassemblesToOriginal(t *testing.T) {
	s, rt := newRuntimeStager(t, 7)
	data := "the quick brown fox jumps over the lazy dog"

	staged, err := s.Stage(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, 7, staged.ChunkCount)

	joined, err := rt.Eval(fmt.Sprintf(`(function() {
  var parts = [];
  for (var i = 0; i < %d; i++) { parts.push(__sfschunks['%s_' + i]); }
  return parts.join('');
})()`, staged.ChunkCount, staged.Key))
	require.NoError(t, err)
	assert.Equal(t, data, joined)
}

func TestStageLargePayload(t *testing.T) {
	s, rt := newRuntimeStager(t, DefaultChunkSize)
	data := strings.Repeat("Qk", 100*1024) // 200 KiB

	staged, err := s.Stage(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 4, staged.ChunkCount)

	total, err := rt.Eval(fmt.Sprintf(`(function() {
  var n = 0;
  for (var i = 0; i < %d; i++) { n += __sfschunks['%s_' + i].length; }
  return n;
})()`, staged.ChunkCount, staged.Key))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), total)
}

func TestStageDistinctKeysPerPayload(t *testing.T) {
	s, _ := newRuntimeStager(t, 4)

	a, err := s.Stage(context.Background(), "first")
	require.NoError(t, err)
	b, err := s.Stage(context.Background(), "second")
	require.NoError(t, err)
	assert.NotEqual(t, a.Key, b.Key)
}

// failingChunkHost passes evaluations through to a real runtime but
// rejects any store of the chunk slot with the given suffix.
type failingChunkHost struct {
	inner      *host.Callback
	failSuffix string
}

func (f *failingChunkHost) Evaluate(code string, done func(value any, errInfo map[string]any)) {
	if strings.Contains(code, f.failSuffix+"'] =") {
		done(nil, map[string]any{"message": "chunk store rejected"})
		return
	}
	f.inner.Evaluate(code, done)
}

func TestStageFailureRemovesStagedChunks(t *testing.T) {
	rt, err := target.New(target.DefaultConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	h := &failingChunkHost{inner: host.NewCallback(rt), failSuffix: "_2"}
	adapter, err := NewAdapter(h)
	require.NoError(t, err)

	s := NewStager(NewDispatcher(adapter, fastConfig(), nil, nil), 4, nil)
	s.newKey = func() string { return "stage_test" }

	_, err = s.Stage(context.Background(), "abcdefghijkl") // 3 chunks; third fails
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staging chunk 2 of 3")

	// Chunks 0 and 1 were stored before the failure and must be gone.
	assert.Equal(t, int64(0), chunkKeys(t, rt))
}

func TestChunkSlotNaming(t *testing.T) {
	assert.Equal(t, "stage_x_0", ChunkSlot("stage_x", 0))
	assert.Equal(t, "stage_x_12", ChunkSlot("stage_x", 12))
}
