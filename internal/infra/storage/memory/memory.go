// Package memory provides an in-process checkpoint store, used by tests and
// by runs that don't need durability.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/buyerscan/buyerscan/internal/core/domain"
)

// Store keeps checkpoints in a map guarded by a RWMutex.
type Store struct {
	mu          sync.RWMutex
	checkpoints map[string]*domain.Checkpoint
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{checkpoints: make(map[string]*domain.Checkpoint)}
}

// Load implements storage.CheckpointStore.
func (s *Store) Load(ctx context.Context, contract string) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoints[strings.ToLower(contract)].Clone(), nil
}

// Save implements storage.CheckpointStore.
func (s *Store) Save(ctx context.Context, contract string, cp *domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[strings.ToLower(contract)] = cp.Clone()
	return nil
}
