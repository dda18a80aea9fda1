// Package engine orchestrates the incremental buyer collection: it walks
// transaction history in block-ordered batches of pages, merges new buyer
// addresses into the running set, advances the block cursor, checkpoints
// progress, and decides between completion, quota pause, and failure.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/buyerscan/buyerscan/internal/core/domain"
	"github.com/buyerscan/buyerscan/internal/infra/explorer"
	"github.com/buyerscan/buyerscan/internal/infra/storage"
	"github.com/buyerscan/buyerscan/internal/scanning/fetch"
	"github.com/buyerscan/buyerscan/internal/scanning/metrics"
)

// Config holds engine tuning.
type Config struct {
	// BatchSize is the number of logical pages processed per batch.
	BatchSize int

	// InterBatchDelay is the pause between batches.
	InterBatchDelay time.Duration
}

// DefaultConfig provides sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:       2,
		InterBatchDelay: 1 * time.Second,
	}
}

// Engine runs one scan at a time. Pages within a batch are processed
// strictly sequentially: each page's starting block depends on the previous
// page's last seen block. At most one engine should be active per contract
// address against the same store.
type Engine struct {
	cfg     Config
	fetcher fetch.Fetcher
	store   storage.CheckpointStore
	log     *slog.Logger

	mu            sync.RWMutex
	state         State
	stateCallback func(Transition)
}

// New creates an engine in the Idle state.
func New(fetcher fetch.Fetcher, store storage.CheckpointStore, cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Engine{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		log:     slog.Default().With("component", "engine"),
		state:   domain.ScanStateIdle,
	}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// SetStateChangeCallback registers a callback for state transitions.
func (e *Engine) SetStateChangeCallback(fn func(Transition)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateCallback = fn
}

// Run scans the contract's transaction history until a terminal condition.
//
// A nil error with IsComplete=false means the daily quota ran out: the
// checkpoint holds everything collected so far and a later invocation
// resumes from LastProcessedPage+1. Errors other than quota exhaustion
// surface to the caller; the previously persisted checkpoint stays intact.
func (e *Engine) Run(ctx context.Context, contract string) (*domain.ScanResult, error) {
	contract = strings.ToLower(contract)
	log := e.log.With("run_id", uuid.NewString(), "contract", contract)

	cp, err := e.store.Load(ctx, contract)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	seen := make(map[string]struct{})
	page := 1
	lastCompleted := 0
	var block uint64
	if cp != nil {
		for _, addr := range cp.Addresses {
			seen[strings.ToLower(addr)] = struct{}{}
		}
		if cp.LastProcessedPage > 0 {
			page = cp.LastProcessedPage + 1
			lastCompleted = cp.LastProcessedPage
		}
		block = cp.LastProcessedBlock
		log.Info("Resuming from checkpoint",
			"buyers", len(seen),
			"page", page,
			"block", block,
		)
	} else {
		log.Info("Starting fresh scan")
	}

	e.transition(domain.ScanStateScanning, "scan started", log)

	for {
		batchAdded := 0
		noMoreData := false

		for i := 0; i < e.cfg.BatchSize; i++ {
			p := page + i
			result, err := e.fetcher.FetchPage(ctx, contract, p, block)
			if err != nil {
				if errors.Is(err, explorer.ErrQuotaExhausted) {
					if batchAdded > 0 {
						e.saveCheckpoint(ctx, contract, seen, lastCompleted, block, log)
					}
					e.transition(domain.ScanStateQuotaPaused, "daily quota exhausted", log)
					log.Warn("Scan paused on quota exhaustion",
						"buyers", len(seen),
						"resume_page", lastCompleted+1,
					)
					return &domain.ScanResult{
						BuyerAddresses:    sortedAddresses(seen),
						LastProcessedPage: lastCompleted,
						IsComplete:        false,
					}, nil
				}
				e.transition(domain.ScanStateFailed, err.Error(), log)
				return nil, fmt.Errorf("fetch page %d: %w", p, err)
			}

			if result.Empty() {
				noMoreData = true
				break
			}

			added := mergeAddresses(seen, result.Addresses)
			batchAdded += added
			block = result.LastBlockSeen + 1
			lastCompleted = p

			metrics.BuyersDiscovered.WithLabelValues(contract).Add(float64(added))
			metrics.LastProcessedBlock.WithLabelValues(contract).Set(float64(block))
			log.Debug("Processed page",
				"page", p,
				"new_buyers", added,
				"total_buyers", len(seen),
				"block", block,
			)
		}

		if batchAdded > 0 && !noMoreData {
			e.saveCheckpoint(ctx, contract, seen, lastCompleted, block, log)
		}

		if noMoreData {
			e.saveCheckpoint(ctx, contract, seen, lastCompleted, block, log)
			e.transition(domain.ScanStateComplete, "no more data", log)
			log.Info("Scan complete", "buyers", len(seen), "pages", lastCompleted)
			return &domain.ScanResult{
				BuyerAddresses:    sortedAddresses(seen),
				LastProcessedPage: lastCompleted,
				IsComplete:        true,
			}, nil
		}

		page += e.cfg.BatchSize

		if e.cfg.InterBatchDelay > 0 {
			select {
			case <-ctx.Done():
				e.transition(domain.ScanStateFailed, "context cancelled", log)
				return nil, ctx.Err()
			case <-time.After(e.cfg.InterBatchDelay):
			}
		}
	}
}

func (e *Engine) transition(to State, reason string, log *slog.Logger) {
	e.mu.Lock()
	t := NewTransition(e.state, to, reason)
	if !t.IsValid() {
		e.mu.Unlock()
		log.Error("Invalid state transition", "from", t.From, "to", t.To)
		return
	}
	e.state = to
	callback := e.stateCallback
	e.mu.Unlock()

	if callback != nil {
		callback(t)
	}
}

// saveCheckpoint overwrites the stored checkpoint with the full current set.
// A failed save is logged but does not abort the scan: the address set keeps
// converging and the next save retries with a superset of the data.
func (e *Engine) saveCheckpoint(
	ctx context.Context,
	contract string,
	seen map[string]struct{},
	lastPage int,
	block uint64,
	log *slog.Logger,
) {
	cp := &domain.Checkpoint{
		TotalBuyers:        len(seen),
		Addresses:          sortedAddresses(seen),
		LastProcessedPage:  lastPage,
		LastProcessedBlock: block,
	}
	if err := e.store.Save(ctx, contract, cp); err != nil {
		log.Error("Failed to save checkpoint", "error", err)
		return
	}
	metrics.CheckpointSaves.WithLabelValues(contract).Inc()
}

func mergeAddresses(seen map[string]struct{}, addrs []string) int {
	added := 0
	for _, addr := range addrs {
		addr = strings.ToLower(addr)
		if _, ok := seen[addr]; !ok {
			seen[addr] = struct{}{}
			added++
		}
	}
	return added
}

func sortedAddresses(seen map[string]struct{}) []string {
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
