package testutil

import (
	"fmt"
	"sync"
)

// SequentialRequestIDs generates "<prefix>-1", "<prefix>-2", ...
//
// This enables deterministic test execution and golden trace comparison:
// the same scenario always produces the same request ids in the event log.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialRequestIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRequestIDs creates a generator. An empty prefix becomes "req".
func NewSequentialRequestIDs(prefix string) *SequentialRequestIDs {
	if prefix == "" {
		prefix = "req"
	}
	return &SequentialRequestIDs{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.RequestIDGenerator.
func (g *SequentialRequestIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
