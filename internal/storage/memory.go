package storage

import (
	"context"
	"sync"

	"github.com/nikolayk812/licensing-storefront/internal/port"
)

type memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemory() port.Storage {
	return &memory{entries: make(map[string]string)}
}

func (m *memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memory) Set(_ context.Context, key, value string) error {
	if key == "" {
		return errEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = value
	return nil
}

func (m *memory) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}
