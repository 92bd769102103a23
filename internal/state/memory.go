package state

import (
	"context"
	"sync"
)

// Memory is a Repository that forgets everything on exit.
type Memory struct {
	mu     sync.Mutex
	values map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: map[string]map[string]string{}}
}

func (m *Memory) Get(ctx context.Context, institution, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[institution][key]
	return value, ok, nil
}

func (m *Memory) Set(ctx context.Context, institution, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[institution] == nil {
		m.values[institution] = map[string]string{}
	}
	m.values[institution][key] = value
	return nil
}

func (m *Memory) All(ctx context.Context, institution string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.values[institution]))
	for k, v := range m.values[institution] {
		out[k] = v
	}
	return out, nil
}
