// Package storage defines the checkpoint persistence contract. The engine
// treats it as a key-value store keyed by contract address; the concrete
// medium (file, PostgreSQL, Redis, memory) is irrelevant to the scan.
package storage

import (
	"context"

	"github.com/buyerscan/buyerscan/internal/core/domain"
)

// CheckpointStore loads and saves scan checkpoints.
//
// At most one active writer per contract address is assumed: saves are whole
// overwrites and concurrent writers would lose updates.
type CheckpointStore interface {
	// Load returns the checkpoint for a contract, or (nil, nil) when no
	// checkpoint exists yet.
	Load(ctx context.Context, contract string) (*domain.Checkpoint, error)

	// Save overwrites the checkpoint for a contract.
	Save(ctx context.Context, contract string, cp *domain.Checkpoint) error
}
