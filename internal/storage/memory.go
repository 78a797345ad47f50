package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps links for the life of the process only.
type MemoryStore struct {
	mu    sync.Mutex
	links []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.links...), nil
}

func (m *MemoryStore) Save(_ context.Context, links []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append([]string(nil), links...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
