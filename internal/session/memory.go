package session

import (
	"context"
	"sync"
)

// MemoryKV is a KV living in process memory. Used when no database is configured.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// MemoryDevices hands out one MemoryKV per device
type MemoryDevices struct {
	mu      sync.Mutex
	devices map[string]*MemoryKV
}

func NewMemoryDevices() *MemoryDevices {
	return &MemoryDevices{devices: make(map[string]*MemoryKV)}
}

func (m *MemoryDevices) Device(id string) KV {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv, ok := m.devices[id]
	if !ok {
		kv = NewMemoryKV()
		m.devices[id] = kv
	}
	return kv
}
