package testfixtures

import (
	"strconv"
	"sync"
)

// IDGenerator yields "<prefix>-1", "<prefix>-2", ... for deterministic ids
// and session tokens.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewIDGenerator returns a generator for prefix, defaulting to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.prefix + "-" + strconv.Itoa(g.next)
}

// NextFunc exposes Next for constructor injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Reset restarts the sequence under a new prefix.
func (g *IDGenerator) Reset(prefix string) {
	g.mu.Lock()
	g.prefix = prefix
	g.next = 0
	g.mu.Unlock()
}
