package domain

// PageResult is the outcome of fetching one logical page of transactions.
type PageResult struct {
	// Addresses are the lower-cased senders of buy transactions on this page.
	Addresses []string

	// LastBlockSeen is the block number of the final record in the raw
	// (unfiltered) page. The scan cursor advances past it even when no
	// record on the page matched the buy selector.
	LastBlockSeen uint64

	// RawCount is the number of records in the page before filtering.
	// Zero means the upstream has no more data at this cursor.
	RawCount int
}

// Empty reports whether the upstream returned no records at all.
func (r *PageResult) Empty() bool {
	return r.RawCount == 0
}

// ScanResult is the caller-facing outcome of one scan invocation.
type ScanResult struct {
	BuyerAddresses    []string
	LastProcessedPage int

	// IsComplete is true when the upstream ran out of data, false when the
	// scan paused on quota exhaustion and should be resumed later.
	IsComplete bool
}

// ScanState is the engine's position in its lifecycle.
type ScanState string

const (
	ScanStateIdle        ScanState = "idle"
	ScanStateScanning    ScanState = "scanning"
	ScanStateComplete    ScanState = "complete"
	ScanStateQuotaPaused ScanState = "quota_paused"
	ScanStateFailed      ScanState = "failed"
)

// Terminal reports whether the state ends a run.
func (s ScanState) Terminal() bool {
	switch s {
	case ScanStateComplete, ScanStateQuotaPaused, ScanStateFailed:
		return true
	}
	return false
}
