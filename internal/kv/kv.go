// Package kv is the local persisted state of the client: a small
// key-value store of UTF-8 JSON blobs.
package kv

import (
	"context"
	"sync"
)

// Logical keys of the client state.
const (
	KeyAnonymousEvents = "anonymous_events"
	KeyCalendarEvents  = "calendar_events"
	KeyUser            = "user"
	KeyUsers           = "users"
	KeySession         = "session"
)

// Store holds text blobs by key. Get reports ok=false for a missing
// key; a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
