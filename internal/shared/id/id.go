// Package id generates correlation ids for dispatched operations.
//
// Ids are prefixed ULIDs: a millisecond timestamp plus random entropy.
// Two ids generated in the same millisecond still differ in their random
// component, which is the whole correctness story for operation isolation;
// no two concurrently outstanding operations may share a scratch slot.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// OpID correlates a submitted operation with its scratch slot.
type OpID string

// OpPrefix marks operation ids apart from other prefixed identifiers.
const OpPrefix = "op"

func (id OpID) String() string { return string(id) }

// Generator produces prefixed ULID strings.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator backed by crypto/rand.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with cryptographically secure entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewOpID generates an operation id.
func (g *Generator) NewOpID() OpID {
	return OpID(g.GenerateWithPrefix(OpPrefix))
}

// NewOpID generates an operation id using the default generator.
func NewOpID() OpID {
	return Default().NewOpID()
}
