package health

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. It backs hosts without a configured
// health log and is used throughout the tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	saves   int
}

// NewMemoryStore returns a MemoryStore pre-populated with entries.
func NewMemoryStore(entries ...Entry) *MemoryStore {
	return &MemoryStore{entries: append([]Entry(nil), entries...)}
}

// Load returns a copy of the stored entries.
func (m *MemoryStore) Load(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...), nil
}

// Save replaces the stored entries with a copy of entries.
func (m *MemoryStore) Save(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]Entry(nil), entries...)
	m.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
