// Package state persists small session values between runs, such as the
// last-used agent and the last opened board.
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/boardsync/internal/sqlite"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// Well-known keys.
const (
	KeyLastAgent = "last_agent"
	KeyLastBoard = "last_board"
)

// Store is a string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg types.StateConfig) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("state config: %w", err)
	}
	switch cfg.Backend {
	case types.StateBackendSQLite:
		return sqlite.Open(ctx, cfg.Path)
	default:
		return NewMemoryStore(), nil
	}
}

// MemoryStore keeps values for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
