package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator generates predictable ids for golden comparisons.
//
// With a prefix it returns "<prefix>-0001", "<prefix>-0002", ... so event
// logs from the same scenario are byte-identical between runs.
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator. An empty prefix becomes "test-id".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "test-id"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
