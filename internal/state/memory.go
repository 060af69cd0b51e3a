package state

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a process-local store, used in tests and dry runs.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func NewMemoryStore(keys ...string) *MemoryStore {
	m := &MemoryStore{keys: make(map[string]bool, len(keys))}
	for _, k := range keys {
		m.keys[k] = true
	}
	return m
}

func (m *MemoryStore) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *MemoryStore) Put(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = true
	return nil
}

func (m *MemoryStore) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.keys))
	for k := range m.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
