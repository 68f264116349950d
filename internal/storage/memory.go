package storage

import (
	"context"
	"sync"
)

type memStore struct {
	mu     sync.Mutex
	states map[string][]byte
	config []byte
}

func NewMemoryStore() Store {
	return &memStore{states: make(map[string][]byte)}
}

func (m *memStore) SaveState(_ context.Context, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.states[id] = cp
	return nil
}

func (m *memStore) LoadState(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *memStore) SaveConfig(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.config = cp
	return nil
}

func (m *memStore) LoadConfig(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config == nil {
		return nil, nil
	}
	cp := make([]byte, len(m.config))
	copy(cp, m.config)
	return cp, nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = make(map[string][]byte)
	m.config = nil
	return nil
}
