package memory

import (
	"context"
	"reflect"
	"testing"

	"github.com/buyerscan/buyerscan/internal/core/domain"
)

func TestLoadAbsent(t *testing.T) {
	store := NewStore()
	cp, err := store.Load(context.Background(), "0xcontract")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cp != nil {
		t.Errorf("Load = %+v, want nil", cp)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	want := &domain.Checkpoint{
		TotalBuyers:        1,
		Addresses:          []string{"0xaaa"},
		LastProcessedPage:  2,
		LastProcessedBlock: 42,
	}
	if err := store.Save(ctx, "0xContract", want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, "0xcontract")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestStoreDoesNotAliasCaller(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	cp := &domain.Checkpoint{TotalBuyers: 1, Addresses: []string{"0xaaa"}}
	if err := store.Save(ctx, "0xcontract", cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Mutating the caller's slice must not leak into the store
	cp.Addresses[0] = "0xmutated"

	got, _ := store.Load(ctx, "0xcontract")
	if got.Addresses[0] != "0xaaa" {
		t.Errorf("stored address = %q, caller mutation leaked", got.Addresses[0])
	}

	// And mutating a loaded copy must not corrupt the store
	got.Addresses[0] = "0xother"
	again, _ := store.Load(ctx, "0xcontract")
	if again.Addresses[0] != "0xaaa" {
		t.Errorf("stored address = %q, load mutation leaked", again.Addresses[0])
	}
}
