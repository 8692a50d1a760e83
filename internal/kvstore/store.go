// Package kvstore provides the durable key-value mapping shared by the chat
// pipeline, the extension accessor, the review queue and the activity log.
// Values are JSON documents addressed by fixed string keys.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrUnavailable is returned by every operation when no durable store is reachable.
var ErrUnavailable = errors.New("kvstore: storage unavailable")

// Store is a generic get/set mapping. Get decodes the stored JSON document into dst
// and reports whether the key existed.
type Store interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Unavailable is the store used when the backend is not configured or unreachable.
type Unavailable struct{}

func (Unavailable) Get(context.Context, string, any) (bool, error) { return false, ErrUnavailable }
func (Unavailable) Set(context.Context, string, any) error         { return ErrUnavailable }

// IsUnavailable reports whether the store is missing or the placeholder.
func IsUnavailable(s Store) bool {
	if s == nil {
		return true
	}
	_, ok := s.(Unavailable)
	return ok
}

// MemoryStore keeps JSON documents in process memory. Used for local development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("kvstore: memory: decode %s: %w", key, err)
	}
	return true, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kvstore: memory: encode %s: %w", key, err)
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

// Keys returns the stored keys. Order is unspecified.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
