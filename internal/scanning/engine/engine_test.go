package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/buyerscan/buyerscan/internal/core/domain"
	"github.com/buyerscan/buyerscan/internal/infra/explorer"
	"github.com/buyerscan/buyerscan/internal/infra/storage/memory"
)

// fakeFetcher serves scripted pages and records every call it sees.
type fakeFetcher struct {
	pages map[int]pageScript

	calledPages []int
	startBlocks []uint64
}

type pageScript struct {
	result *domain.PageResult
	err    error
}

func (f *fakeFetcher) FetchPage(
	ctx context.Context,
	contract string,
	page int,
	startBlock uint64,
) (*domain.PageResult, error) {
	f.calledPages = append(f.calledPages, page)
	f.startBlocks = append(f.startBlocks, startBlock)

	script, ok := f.pages[page]
	if !ok {
		return &domain.PageResult{}, nil
	}
	return script.result, script.err
}

func dataPage(lastBlock uint64, raw int, addrs ...string) pageScript {
	return pageScript{result: &domain.PageResult{
		Addresses:     addrs,
		LastBlockSeen: lastBlock,
		RawCount:      raw,
	}}
}

func newTestEngine(f *fakeFetcher, store *memory.Store) *Engine {
	return New(f, store, Config{BatchSize: 2})
}

func TestQuotaScenario(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int]pageScript{
		1: dataPage(100, 2, "0xaaa", "0xbbb"),
		2: dataPage(200, 1, "0xccc"),
		3: {err: explorer.ErrQuotaExhausted},
	}}
	store := memory.NewStore()
	eng := newTestEngine(fetcher, store)

	result, err := eng.Run(context.Background(), "0xContract")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.IsComplete {
		t.Error("IsComplete = true, want false on quota exhaustion")
	}
	if result.LastProcessedPage != 2 {
		t.Errorf("LastProcessedPage = %d, want 2", result.LastProcessedPage)
	}
	want := []string{"0xaaa", "0xbbb", "0xccc"}
	if !reflect.DeepEqual(result.BuyerAddresses, want) {
		t.Errorf("BuyerAddresses = %v, want %v", result.BuyerAddresses, want)
	}
	if eng.State() != domain.ScanStateQuotaPaused {
		t.Errorf("State = %s, want quota_paused", eng.State())
	}

	cp, err := store.Load(context.Background(), "0xcontract")
	if err != nil || cp == nil {
		t.Fatalf("Load checkpoint = %v, %v, want stored checkpoint", cp, err)
	}
	if !reflect.DeepEqual(cp.Addresses, want) {
		t.Errorf("checkpoint addresses = %v, want %v", cp.Addresses, want)
	}
	if cp.TotalBuyers != 3 {
		t.Errorf("TotalBuyers = %d, want 3", cp.TotalBuyers)
	}
	if cp.LastProcessedPage != 2 {
		t.Errorf("checkpoint page = %d, want 2", cp.LastProcessedPage)
	}
	if cp.LastProcessedBlock != 201 {
		t.Errorf("checkpoint block = %d, want 201", cp.LastProcessedBlock)
	}
}

func TestQuotaMidBatchCheckpointsCompletedPages(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int]pageScript{
		1: dataPage(100, 2, "0xaaa"),
		2: {err: explorer.ErrQuotaExhausted},
	}}
	store := memory.NewStore()
	eng := newTestEngine(fetcher, store)

	result, err := eng.Run(context.Background(), "0xcontract")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.IsComplete || result.LastProcessedPage != 1 {
		t.Errorf("result = %+v, want paused at page 1", result)
	}

	cp, _ := store.Load(context.Background(), "0xcontract")
	if cp == nil || cp.LastProcessedPage != 1 || cp.TotalBuyers != 1 {
		t.Fatalf("checkpoint = %+v, want page 1 with 1 buyer", cp)
	}
}

func TestCompletionScenario(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int]pageScript{
		1: dataPage(100, 3, "0xaaa"),
		2: dataPage(150, 2, "0xbbb"),
		// page 3 has no script: zero raw transactions
	}}
	store := memory.NewStore()
	eng := newTestEngine(fetcher, store)

	result, err := eng.Run(context.Background(), "0xcontract")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.IsComplete {
		t.Error("IsComplete = false, want true")
	}
	if eng.State() != domain.ScanStateComplete {
		t.Errorf("State = %s, want complete", eng.State())
	}
	for _, p := range fetcher.calledPages {
		if p > 3 {
			t.Errorf("fetched page %d after end of data", p)
		}
	}

	cp, _ := store.Load(context.Background(), "0xcontract")
	if cp == nil || cp.TotalBuyers != 2 {
		t.Fatalf("final checkpoint = %+v, want 2 buyers", cp)
	}
}

func TestEmptyFilterStillAdvancesCursor(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int]pageScript{
		1: dataPage(300, 5), // five raw records, none match the selector
		2: dataPage(400, 2, "0xddd"),
	}}
	store := memory.NewStore()
	eng := newTestEngine(fetcher, store)

	result, err := eng.Run(context.Background(), "0xcontract")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Page 2 must start past the raw batch of page 1
	if len(fetcher.startBlocks) < 2 || fetcher.startBlocks[1] != 301 {
		t.Errorf("startBlocks = %v, want second fetch from block 301", fetcher.startBlocks)
	}
	if !result.IsComplete {
		t.Error("IsComplete = false, want true")
	}
	if !reflect.DeepEqual(result.BuyerAddresses, []string{"0xddd"}) {
		t.Errorf("BuyerAddresses = %v, want only 0xddd", result.BuyerAddresses)
	}
}

func TestDeduplicationIsCaseInsensitive(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int]pageScript{
		1: dataPage(100, 3, "0xAAA", "0xaaa", "0xBbB"),
		2: dataPage(200, 2, "0xbbb", "0xAAA"),
	}}
	eng := newTestEngine(fetcher, memory.NewStore())

	result, err := eng.Run(context.Background(), "0xcontract")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []string{"0xaaa", "0xbbb"}
	if !reflect.DeepEqual(result.BuyerAddresses, want) {
		t.Errorf("BuyerAddresses = %v, want %v", result.BuyerAddresses, want)
	}
}

func TestBlockCursorMonotonic(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int]pageScript{
		1: dataPage(50, 2, "0xa"),
		2: dataPage(75, 2, "0xb"),
		3: dataPage(90, 1),
		4: dataPage(120, 1, "0xc"),
	}}
	eng := newTestEngine(fetcher, memory.NewStore())

	if _, err := eng.Run(context.Background(), "0xcontract"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var prev uint64
	for i, b := range fetcher.startBlocks {
		if b < prev {
			t.Errorf("startBlocks[%d] = %d, decreased from %d", i, b, prev)
		}
		prev = b
	}
}

func TestResumeMatchesUninterruptedRun(t *testing.T) {
	allPages := map[int]pageScript{
		1: dataPage(100, 2, "0xaaa", "0xbbb"),
		2: dataPage(200, 2, "0xccc"),
		3: dataPage(300, 2, "0xddd", "0xaaa"),
		4: dataPage(400, 1, "0xeee"),
	}

	// Uninterrupted reference run
	refEng := newTestEngine(&fakeFetcher{pages: allPages}, memory.NewStore())
	refResult, err := refEng.Run(context.Background(), "0xcontract")
	if err != nil {
		t.Fatalf("reference Run failed: %v", err)
	}

	// First run hits quota at page 3
	store := memory.NewStore()
	firstPages := map[int]pageScript{
		1: allPages[1],
		2: allPages[2],
		3: {err: explorer.ErrQuotaExhausted},
	}
	firstResult, err := newTestEngine(&fakeFetcher{pages: firstPages}, store).
		Run(context.Background(), "0xcontract")
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if firstResult.IsComplete {
		t.Fatal("first run completed, want quota pause")
	}

	// Second run resumes from the checkpoint
	resumeFetcher := &fakeFetcher{pages: allPages}
	secondResult, err := newTestEngine(resumeFetcher, store).
		Run(context.Background(), "0xcontract")
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if len(resumeFetcher.calledPages) == 0 || resumeFetcher.calledPages[0] != 3 {
		t.Errorf("resume started at pages %v, want page 3", resumeFetcher.calledPages)
	}
	if len(resumeFetcher.startBlocks) == 0 || resumeFetcher.startBlocks[0] != 201 {
		t.Errorf("resume startBlocks = %v, want first fetch from block 201", resumeFetcher.startBlocks)
	}
	if !secondResult.IsComplete {
		t.Error("second run IsComplete = false, want true")
	}
	if !reflect.DeepEqual(secondResult.BuyerAddresses, refResult.BuyerAddresses) {
		t.Errorf("resumed set = %v, uninterrupted set = %v",
			secondResult.BuyerAddresses, refResult.BuyerAddresses)
	}
}

func TestFailurePreservesStoredCheckpoint(t *testing.T) {
	store := memory.NewStore()
	seeded := &domain.Checkpoint{
		TotalBuyers:        1,
		Addresses:          []string{"0xseed"},
		LastProcessedPage:  4,
		LastProcessedBlock: 999,
	}
	if err := store.Save(context.Background(), "0xcontract", seeded); err != nil {
		t.Fatalf("seed Save failed: %v", err)
	}

	fetcher := &fakeFetcher{pages: map[int]pageScript{
		5: {err: &explorer.UpstreamError{Status: "0", Message: "boom"}},
	}}
	eng := newTestEngine(fetcher, store)

	_, err := eng.Run(context.Background(), "0xcontract")
	var ue *explorer.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Run error = %v, want *UpstreamError", err)
	}
	if eng.State() != domain.ScanStateFailed {
		t.Errorf("State = %s, want failed", eng.State())
	}

	cp, _ := store.Load(context.Background(), "0xcontract")
	if !reflect.DeepEqual(cp, seeded) {
		t.Errorf("checkpoint after failure = %+v, want untouched %+v", cp, seeded)
	}
}

func TestStateCallbackSequence(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int]pageScript{
		1: dataPage(10, 1, "0xa"),
	}}
	eng := newTestEngine(fetcher, memory.NewStore())

	var states []State
	eng.SetStateChangeCallback(func(tr Transition) {
		states = append(states, tr.To)
	})

	if _, err := eng.Run(context.Background(), "0xcontract"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []State{domain.ScanStateScanning, domain.ScanStateComplete}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("state sequence = %v, want %v", states, want)
	}
}
