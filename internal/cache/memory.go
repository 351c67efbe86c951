package cache

import (
	"context"
	"sync"
)

// MemoryIndex is a process-local SessionIndex.
type MemoryIndex struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{seen: make(map[string]struct{})}
}

// Known implements SessionIndex.
func (m *MemoryIndex) Known(ctx context.Context, sessionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.seen[sessionID]
	return ok, nil
}

// Remember implements SessionIndex.
func (m *MemoryIndex) Remember(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seen[sessionID] = struct{}{}
	return nil
}

// Close implements SessionIndex.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seen = make(map[string]struct{})
	return nil
}
