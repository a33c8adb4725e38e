package store

import (
	"context"
	"fmt"
	"sync"

	"prbuild-agent/src/config"
)

// MemoryStore is an in-memory implementation of Store.
// It keeps the encoded blob, so callers never share a *config.Config with it.
// Useful for testing and for runs without Postgres.
type MemoryStore struct {
	mu   sync.RWMutex
	blob []byte
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns a fresh copy of the stored configuration.
func (s *MemoryStore) Get(ctx context.Context) (*config.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.blob == nil {
		return nil, ErrNotFound
	}
	return config.Parse(s.blob)
}

// Set stores cfg.
func (s *MemoryStore) Set(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("cannot store nil configuration")
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = data
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
