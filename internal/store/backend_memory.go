package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps collections in a map. It is the development and test
// backend and loses everything on restart.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string

	failWrites error
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryBackend) Put(_ context.Context, key, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	m.data[key] = text
	return nil
}

// SetFailWrites makes every later Put return err; nil restores writes.
func (m *MemoryBackend) SetFailWrites(err error) {
	m.mu.Lock()
	m.failWrites = err
	m.mu.Unlock()
}
