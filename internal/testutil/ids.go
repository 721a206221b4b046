package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator generates the same batch id every time.
//
// This enables golden snapshot comparison: the same scenario with the
// same FixedIDGenerator produces byte-identical traces.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a new fixed batch id generator.
//
// If id is empty, Generate() returns "test-batch-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-batch-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed batch id.
//
// Implements manager.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequentialIDGenerator generates "<prefix>-0001", "<prefix>-0002", ...
//
// Unlike FixedIDGenerator, ids differ per batch, so tests can tell
// batches apart in journals and logs while staying deterministic.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator. An empty prefix becomes
// "test-batch".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "test-batch"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts numbering. After Reset(), the next id ends in 0001.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
