// Package localdb provides the durable key-value surface the version store
// persists into: Get/Set of string documents, backed by an embedded sqlite
// database or by process memory.
package localdb

import (
	"context"
	"sync"
)

// Store is the persistence surface. Implementations must treat values as
// opaque strings; the version store writes one JSON document per key.
type Store interface {
	// Get returns the value for key. The second result is false when the key
	// has never been set.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value string) error
}

// Memory is an in-memory Store used in tests and when persistence is
// disabled.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
