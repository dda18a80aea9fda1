// Package file persists checkpoints as a single JSON document on disk,
// keyed by contract address.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/buyerscan/buyerscan/internal/core/domain"
)

// Config holds file store settings.
type Config struct {
	Path string `yaml:"path"`
}

// Store is a file-backed checkpoint store. Saves go through a temp file and
// an atomic rename so a crash mid-write never leaves a torn checkpoint.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a file-backed store. The directory containing path is
// created on first save if it does not exist.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load implements storage.CheckpointStore.
func (s *Store) Load(ctx context.Context, contract string) (*domain.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readAll()
	if err != nil {
		return nil, err
	}
	return data[strings.ToLower(contract)].Clone(), nil
}

// Save implements storage.CheckpointStore.
func (s *Store) Save(ctx context.Context, contract string, cp *domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readAll()
	if err != nil {
		return err
	}
	if data == nil {
		data = make(map[string]*domain.Checkpoint)
	}
	data[strings.ToLower(contract)] = cp

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoints: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoints-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (s *Store) readAll() (map[string]*domain.Checkpoint, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint file: %w", err)
	}

	var data map[string]*domain.Checkpoint
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode checkpoint file: %w", err)
	}
	return data, nil
}
