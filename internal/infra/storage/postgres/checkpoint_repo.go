package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buyerscan/buyerscan/internal/core/domain"
)

// CheckpointRepo implements storage.CheckpointStore using PostgreSQL.
type CheckpointRepo struct {
	db *DB
}

// NewCheckpointRepo creates a new PostgreSQL checkpoint repository.
func NewCheckpointRepo(db *DB) *CheckpointRepo {
	return &CheckpointRepo{db: db}
}

type checkpointRow struct {
	ContractAddress    string `db:"contract_address"`
	TotalBuyers        int    `db:"total_buyers"`
	Addresses          []byte `db:"addresses"`
	LastProcessedPage  int    `db:"last_processed_page"`
	LastProcessedBlock int64  `db:"last_processed_block"`
	UpdatedAt          int64  `db:"updated_at"`
}

// Load retrieves the checkpoint for a contract, or (nil, nil) when absent.
func (r *CheckpointRepo) Load(ctx context.Context, contract string) (*domain.Checkpoint, error) {
	var row checkpointRow
	err := r.db.GetContext(ctx, &row,
		`SELECT contract_address, total_buyers, addresses,
		        last_processed_page, last_processed_block, updated_at
		   FROM checkpoints
		  WHERE contract_address = $1`,
		strings.ToLower(contract),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	var addresses []string
	if err := json.Unmarshal(row.Addresses, &addresses); err != nil {
		return nil, fmt.Errorf("failed to decode addresses: %w", err)
	}

	return &domain.Checkpoint{
		TotalBuyers:        row.TotalBuyers,
		Addresses:          addresses,
		LastProcessedPage:  row.LastProcessedPage,
		LastProcessedBlock: uint64(row.LastProcessedBlock),
	}, nil
}

// Save overwrites the checkpoint for a contract.
func (r *CheckpointRepo) Save(ctx context.Context, contract string, cp *domain.Checkpoint) error {
	addresses, err := json.Marshal(cp.Addresses)
	if err != nil {
		return fmt.Errorf("failed to encode addresses: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO checkpoints
		        (contract_address, total_buyers, addresses,
		         last_processed_page, last_processed_block, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (contract_address) DO UPDATE SET
		        total_buyers = EXCLUDED.total_buyers,
		        addresses = EXCLUDED.addresses,
		        last_processed_page = EXCLUDED.last_processed_page,
		        last_processed_block = EXCLUDED.last_processed_block,
		        updated_at = EXCLUDED.updated_at`,
		strings.ToLower(contract),
		cp.TotalBuyers,
		addresses,
		cp.LastProcessedPage,
		int64(cp.LastProcessedBlock),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
