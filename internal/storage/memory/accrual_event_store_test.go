package memory

import (
	"context"
	"testing"

	"clm-rewards/internal/domain"
)

func TestAccrualEventStore_InsertBulkAndRange(t *testing.T) {
	store := NewAccrualEventStore()
	ctx := context.Background()

	events := []*domain.AccrualEvent{
		{PositionID: "p1", PoolID: "pool1", Mint: "mint1", Amount: "10", Tick: 5, Timestamp: 1000},
		{PositionID: "p1", PoolID: "pool1", Mint: "mint1", Amount: "20", Tick: 6, Timestamp: 2000},
		{PositionID: "p2", PoolID: "pool1", Mint: "mint1", Amount: "30", Tick: 6, Timestamp: 3000},
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetByPool(ctx, "pool1")
	if err != nil {
		t.Fatalf("GetByPool failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(all))
	}

	ranged, err := store.GetByTimeRange(ctx, "pool1", 1500, 2500)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Amount != "20" {
		t.Errorf("range query returned %d events, want 1 with amount 20", len(ranged))
	}
}

func TestAccrualEventStore_EmptyBulkIsNoop(t *testing.T) {
	store := NewAccrualEventStore()
	if err := store.InsertBulk(context.Background(), nil); err != nil {
		t.Errorf("empty InsertBulk failed: %v", err)
	}
}
