package memory

import (
	"context"
	"errors"
	"testing"

	"clm-rewards/internal/domain"
	"clm-rewards/internal/storage"
)

func TestFundingEventStore_InsertAssignsIDs(t *testing.T) {
	store := NewFundingEventStore()
	ctx := context.Background()

	for i := int64(0); i < 3; i++ {
		err := store.Insert(ctx, &domain.FundingEvent{
			PoolID:   "pool1",
			Mint:     "mint1",
			Amount:   "1000",
			DayIndex: 10 + i,
			FundedAt: 1000 + i,
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByPool(ctx, "pool1")
	if err != nil {
		t.Fatalf("GetByPool failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(result))
	}
	if result[0].ID == 0 || result[0].ID == result[1].ID {
		t.Errorf("IDs not assigned uniquely: %d, %d", result[0].ID, result[1].ID)
	}
}

func TestFundingEventStore_InvalidInput(t *testing.T) {
	store := NewFundingEventStore()
	err := store.Insert(context.Background(), &domain.FundingEvent{PoolID: "", Mint: "m"})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestFundingEventStore_GetByPoolAndDay(t *testing.T) {
	store := NewFundingEventStore()
	ctx := context.Background()

	events := []*domain.FundingEvent{
		{PoolID: "pool1", Mint: "mint1", Amount: "100", DayIndex: 10, FundedAt: 1},
		{PoolID: "pool1", Mint: "mint1", Amount: "200", DayIndex: 11, FundedAt: 2},
		{PoolID: "pool1", Mint: "mint2", Amount: "300", DayIndex: 10, FundedAt: 3},
		{PoolID: "pool2", Mint: "mint1", Amount: "400", DayIndex: 10, FundedAt: 4},
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByPoolAndDay(ctx, "pool1", 10)
	if err != nil {
		t.Fatalf("GetByPoolAndDay failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(result))
	}
	if result[0].Amount != "100" || result[1].Amount != "300" {
		t.Errorf("wrong events: %s, %s", result[0].Amount, result[1].Amount)
	}
}
