package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/storage"
	"github.com/chowpashing/flash-loan-project/internal/storage/postgres"
)

func TestLedgerEventStore_InsertAndGetByAddress(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewLedgerEventStore(pool)

	event := &domain.LedgerEvent{
		EventID:   "ev1",
		Kind:      domain.EventLoanIssued,
		Address:   "loanAddr1",
		Actor:     "borrower1",
		Pool:      "poolAddr1",
		Amount:    500000,
		Fee:       5000,
		Timestamp: 1704067200000,
	}

	err := store.Insert(ctx, event)
	require.NoError(t, err)

	events, err := store.GetByAddress(ctx, "loanAddr1")
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, event.EventID, events[0].EventID)
	assert.Equal(t, event.Kind, events[0].Kind)
	assert.Equal(t, event.Actor, events[0].Actor)
	assert.Equal(t, event.Pool, events[0].Pool)
	assert.Equal(t, event.Amount, events[0].Amount)
	assert.Equal(t, event.Fee, events[0].Fee)
	assert.Equal(t, event.Timestamp, events[0].Timestamp)
}

func TestLedgerEventStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewLedgerEventStore(pool)

	event := &domain.LedgerEvent{
		EventID:   "dup-ev",
		Kind:      domain.EventSwapExecuted,
		Address:   "dexAddr1",
		Timestamp: 1000,
	}

	err := store.Insert(ctx, event)
	require.NoError(t, err)

	err = store.Insert(ctx, event)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestLedgerEventStore_InsertBulk_AtomicOnDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewLedgerEventStore(pool)

	err := store.Insert(ctx, &domain.LedgerEvent{
		EventID: "ev2", Kind: domain.EventLoanRepaid, Timestamp: 1000,
	})
	require.NoError(t, err)

	err = store.InsertBulk(ctx, []*domain.LedgerEvent{
		{EventID: "ev1", Kind: domain.EventLoanIssued, Timestamp: 999},
		{EventID: "ev2", Kind: domain.EventLoanRepaid, Timestamp: 1000}, // duplicate
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// ev1 must not have been inserted.
	events, err := store.GetByTimeRange(ctx, 0, 2000)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestLedgerEventStore_GetByKind(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewLedgerEventStore(pool)

	err := store.InsertBulk(ctx, []*domain.LedgerEvent{
		{EventID: "ev1", Kind: domain.EventLoanIssued, Timestamp: 3000},
		{EventID: "ev2", Kind: domain.EventLoanRepaid, Timestamp: 2000},
		{EventID: "ev3", Kind: domain.EventLoanIssued, Timestamp: 1000},
	})
	require.NoError(t, err)

	events, err := store.GetByKind(ctx, domain.EventLoanIssued)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "ev3", events[0].EventID)
	assert.Equal(t, "ev1", events[1].EventID)
}

func TestLedgerEventStore_GetByTimeRange_Inclusive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewLedgerEventStore(pool)

	err := store.InsertBulk(ctx, []*domain.LedgerEvent{
		{EventID: "ev1", Kind: domain.EventSwapExecuted, Timestamp: 1000},
		{EventID: "ev2", Kind: domain.EventSwapExecuted, Timestamp: 2000},
		{EventID: "ev3", Kind: domain.EventSwapExecuted, Timestamp: 3000},
	})
	require.NoError(t, err)

	events, err := store.GetByTimeRange(ctx, 1000, 2000)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestLedgerEventStore_LargeAmounts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewLedgerEventStore(pool)

	// Amounts above int64 max round-trip through the signed column.
	event := &domain.LedgerEvent{
		EventID:   "big-ev",
		Kind:      domain.EventSwapExecuted,
		Address:   "dexAddr1",
		Amount:    1 << 63,
		AmountOut: ^uint64(0),
		Timestamp: 1000,
	}

	err := store.Insert(ctx, event)
	require.NoError(t, err)

	events, err := store.GetByAddress(ctx, "dexAddr1")
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, event.Amount, events[0].Amount)
	assert.Equal(t, event.AmountOut, events[0].AmountOut)
}
