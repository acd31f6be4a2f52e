package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clm-rewards/internal/domain"
)

func TestFundingEventStore_InsertAndGetByPool(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFundingEventStore(pool)

	event := &domain.FundingEvent{
		PoolID:   "PoolFund1",
		Mint:     "MintFund1",
		Amount:   "864000",
		DayIndex: 20002,
		FundedAt: 1728000000,
	}

	require.NoError(t, store.Insert(ctx, event))
	assert.NotZero(t, event.ID)
	assert.NotZero(t, event.CreatedAt)

	events, err := store.GetByPool(ctx, "PoolFund1")
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, event.Mint, events[0].Mint)
	assert.Equal(t, event.Amount, events[0].Amount)
	assert.Equal(t, event.DayIndex, events[0].DayIndex)
	assert.Equal(t, event.FundedAt, events[0].FundedAt)
}

func TestFundingEventStore_GetByPoolAndDay(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFundingEventStore(pool)

	events := []*domain.FundingEvent{
		{PoolID: "PoolDay", Mint: "MintA", Amount: "100", DayIndex: 20002, FundedAt: 1728000000},
		{PoolID: "PoolDay", Mint: "MintA", Amount: "200", DayIndex: 20002, FundedAt: 1728000100},
		{PoolID: "PoolDay", Mint: "MintA", Amount: "300", DayIndex: 20003, FundedAt: 1728086400},
	}
	for _, e := range events {
		require.NoError(t, store.Insert(ctx, e))
	}

	got, err := store.GetByPoolAndDay(ctx, "PoolDay", 20002)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "100", got[0].Amount)
	assert.Equal(t, "200", got[1].Amount)
}

func TestFundingEventStore_Ordering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFundingEventStore(pool)

	// Insert in reverse funding order.
	for _, e := range []*domain.FundingEvent{
		{PoolID: "PoolOrder", Mint: "MintA", Amount: "3", DayIndex: 3, FundedAt: 3000},
		{PoolID: "PoolOrder", Mint: "MintA", Amount: "1", DayIndex: 1, FundedAt: 1000},
		{PoolID: "PoolOrder", Mint: "MintA", Amount: "2", DayIndex: 2, FundedAt: 2000},
	} {
		require.NoError(t, store.Insert(ctx, e))
	}

	got, err := store.GetByPool(ctx, "PoolOrder")
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, int64(1000), got[0].FundedAt)
	assert.Equal(t, int64(2000), got[1].FundedAt)
	assert.Equal(t, int64(3000), got[2].FundedAt)
}

func TestFundingEventStore_EmptyResult(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFundingEventStore(pool)

	got, err := store.GetByPool(ctx, "nonexistent-pool")
	require.NoError(t, err)
	assert.Empty(t, got)
}
