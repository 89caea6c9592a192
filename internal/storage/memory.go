package storage

import (
	"context"
	"sync"
)

var _ Storage = (*Memory)(nil)

// Memory keeps slots in a map. Used for tests and ephemeral runs.
type Memory struct {
	mu    sync.RWMutex
	slots map[string]string
}

// NewMemory creates an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.slots[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}
