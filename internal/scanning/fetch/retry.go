// Package fetch wraps page fetching with bounded retry-on-rate-limit,
// delegating wait durations to the rate limiter.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/buyerscan/buyerscan/internal/core/domain"
	"github.com/buyerscan/buyerscan/internal/infra/explorer"
	"github.com/buyerscan/buyerscan/internal/scanning/ratelimit"
)

// ErrRetriesExhausted is returned instead of the silent empty page when the
// wrapper runs in strict mode and every attempt was rate limited.
var ErrRetriesExhausted = errors.New("fetch: retries exhausted")

// Fetcher retrieves one logical page of transactions for a contract.
type Fetcher interface {
	FetchPage(ctx context.Context, contract string, page int, startBlock uint64) (*domain.PageResult, error)
}

// Config holds retry behavior.
type Config struct {
	// MaxAttempts bounds total attempts per page, including the first.
	MaxAttempts int

	// Strict surfaces ErrRetriesExhausted instead of degrading to an empty
	// page when every attempt was rate limited.
	Strict bool
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{MaxAttempts: 3}

// RetryFetcher wraps a Fetcher with rate-limit pacing and bounded retries.
//
// Only ErrRateLimited is retried. Quota exhaustion is not transient and
// other failures are not known to be safe to blindly retry, so both
// propagate immediately. When the attempt budget runs out the wrapper
// degrades to an empty page by default: the engine reads that as
// end-of-data, so a sustained outage stops the scan cleanly rather than
// failing it. Callers that would rather fail than risk a false "complete"
// set Strict.
type RetryFetcher struct {
	fetcher Fetcher
	limiter *ratelimit.Limiter
	cfg     Config
	log     *slog.Logger
}

// NewRetryFetcher wraps fetcher with retry behavior paced by limiter.
func NewRetryFetcher(fetcher Fetcher, limiter *ratelimit.Limiter, cfg Config) *RetryFetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	return &RetryFetcher{
		fetcher: fetcher,
		limiter: limiter,
		cfg:     cfg,
		log:     slog.Default().With("component", "fetch"),
	}
}

// FetchPage implements Fetcher.
func (r *RetryFetcher) FetchPage(
	ctx context.Context,
	contract string,
	page int,
	startBlock uint64,
) (*domain.PageResult, error) {
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := r.limiter.WaitIfNeeded(ctx); err != nil {
			return nil, err
		}

		result, err := r.fetcher.FetchPage(ctx, contract, page, startBlock)
		if err == nil {
			r.limiter.RecordSuccess()
			return result, nil
		}

		r.limiter.RecordError()

		if !errors.Is(err, explorer.ErrRateLimited) {
			return nil, err
		}

		if attempt == r.cfg.MaxAttempts {
			break
		}

		wait := r.limiter.WaitTime()
		r.log.Warn("Rate limited, backing off",
			"page", page,
			"attempt", attempt,
			"wait", wait,
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	if r.cfg.Strict {
		return nil, ErrRetriesExhausted
	}

	r.log.Warn("Retries exhausted, treating page as end of data", "page", page)
	return &domain.PageResult{}, nil
}
