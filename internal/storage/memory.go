package storage

import (
	"context"
	"sync"

	"github.com/yndnr/towerlink-go/internal/core/domain"
)

// MemoryStore is an in-process Store. It backs tests and dry runs where the
// sender and receiver share one process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Put stores a copy of value.
func (m *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)

	m.mu.Lock()
	m.data[key] = v
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored value.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrStoreNotFound.WithDetails(key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
