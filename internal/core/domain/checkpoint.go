package domain

// Checkpoint is the persisted snapshot of a scan: every buyer address found
// so far plus the cursor needed to resume. Saves are whole overwrites, never
// appends, so a stored checkpoint is always internally consistent.
//
// Invariant: TotalBuyers == len(Addresses) and Addresses holds no
// case-insensitive duplicates.
type Checkpoint struct {
	TotalBuyers        int      `json:"total_buyers"`
	Addresses          []string `json:"addresses"`
	LastProcessedPage  int      `json:"last_processed_page,omitempty"`
	LastProcessedBlock uint64   `json:"last_processed_block,omitempty"`
}

// Clone returns a deep copy so stores can hand out checkpoints without
// aliasing the caller's address slice.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Addresses = make([]string, len(c.Addresses))
	copy(cp.Addresses, c.Addresses)
	return &cp
}
