package explorer

import (
	"errors"
	"fmt"
)

var (
	// ErrQuotaExhausted means the upstream reported its daily cap reached.
	// Not transient: the scan must checkpoint and pause until tomorrow.
	ErrQuotaExhausted = errors.New("explorer: daily quota exhausted")

	// ErrRateLimited means the upstream asked us to slow down. Transient,
	// safe to retry with backoff.
	ErrRateLimited = errors.New("explorer: rate limited")

	// ErrMissingAPIKey is returned before any network activity when the
	// client is constructed without a credential.
	ErrMissingAPIKey = errors.New("explorer: api key is not set")
)

// UpstreamError is an unexpected API-reported failure carrying the upstream
// message. It is not retried and surfaces to the caller.
type UpstreamError struct {
	Status  string
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("explorer: upstream status %q: %s", e.Status, e.Message)
}

// TransportError wraps network or payload-decoding failures.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("explorer: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
