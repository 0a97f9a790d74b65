package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandboxfs/internal/escape"
	"github.com/GriffinCanCode/sandboxfs/internal/logging"
)

// DefaultChunkSize bounds each staged slice. Large inlined literals are
// vulnerable to undocumented host size limits and silent truncation, so
// payloads cross the bridge in pieces no bigger than this.
const DefaultChunkSize = 64 * 1024

// Staged identifies a payload staged into the target's scratch storage.
// Chunk i lives under <Key>_i for i in [0, ChunkCount).
type Staged struct {
	Key        string
	ChunkCount int
}

// Stager moves oversized base64 payloads into the target context across
// multiple small evaluations.
type Stager struct {
	dispatcher *Dispatcher
	chunkSize  int
	log        *logging.Logger
	newKey     func() string
}

// NewStager creates a stager over the dispatcher. log may be nil.
func NewStager(dispatcher *Dispatcher, chunkSize int, log *logging.Logger) *Stager {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Stager{
		dispatcher: dispatcher,
		chunkSize:  chunkSize,
		log:        log,
		newKey: func() string {
			return "stage_" + uuid.NewString()
		},
	}
}

// ChunkSlot names chunk i of a staged payload.
func ChunkSlot(key string, i int) string {
	return fmt.Sprintf("%s_%d", key, i)
}

// Stage splits data into fixed-size chunks and stores each under its own
// scratch slot via one dispatched operation. Empty input stages a single
// empty chunk so the consuming write still has something to read.
//
// If any chunk fails to stage, every previously staged chunk is deleted
// (best effort) before the original failure is returned, leaving no
// orphaned scratch entries.
func (s *Stager) Stage(ctx context.Context, data string) (Staged, error) {
	key := s.newKey()
	count := (len(data) + s.chunkSize - 1) / s.chunkSize
	if count == 0 {
		count = 1
	}

	for i := 0; i < count; i++ {
		lo := i * s.chunkSize
		hi := min(lo+s.chunkSize, len(data))

		if _, err := s.dispatcher.Dispatch(ctx, storeChunkBody(key, i, data[lo:hi])); err != nil {
			s.unstage(key, i)
			return Staged{}, fmt.Errorf("staging chunk %d of %d: %w", i, count, err)
		}
	}

	s.dispatcher.metrics.AddStagedChunks(count)
	s.log.Debug("payload staged",
		zap.String("key", key),
		zap.Int("chunks", count),
		zap.Int("bytes", len(data)))
	return Staged{Key: key, ChunkCount: count}, nil
}

// unstage deletes chunks 0..n-1 after a failed staging run, best effort.
func (s *Stager) unstage(key string, n int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 0; i < n; i++ {
		if _, err := s.dispatcher.Dispatch(ctx, deleteChunkBody(key, i)); err != nil {
			s.log.Warn("staged chunk cleanup failed",
				zap.String("slot", ChunkSlot(key, i)),
				zap.Error(err))
		}
	}
}

func storeChunkBody(key string, i int, chunk string) string {
	return fmt.Sprintf(`if (!globalThis.__sfschunks) { globalThis.__sfschunks = {}; }
__sfschunks[%s] = %s;
return true;`, escape.Quote(ChunkSlot(key, i)), escape.Quote(chunk))
}

func deleteChunkBody(key string, i int) string {
	return fmt.Sprintf(`if (globalThis.__sfschunks) { delete __sfschunks[%s]; }
return true;`, escape.Quote(ChunkSlot(key, i)))
}
