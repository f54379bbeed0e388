package kvstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/niksmo/product-explorer/internal/core/port"
)

var _ port.KeyValueStore = (*MemoryStore)(nil)

// A MemoryStore keeps values in process memory.
// Nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string][]byte)}
}

func (s *MemoryStore) Get(
	ctx context.Context, key string,
) ([]byte, bool, error) {
	const op = "MemoryStore.Get"

	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return slices.Clone(v), ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	const op = "MemoryStore.Set"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = slices.Clone(value)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	const op = "MemoryStore.Delete"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
