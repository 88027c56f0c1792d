package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/storage"
)

func TestTransactionRecordStore_InsertAndGet(t *testing.T) {
	store := NewTransactionRecordStore()
	ctx := context.Background()

	record := &domain.TransactionRecord{
		TxID:       "tx1",
		Owner:      "owner1",
		LoanAmount: 500000,
		Fee:        5000,
		NetProfit:  206692,
		Timestamp:  1704067200000,
	}

	if err := store.Insert(ctx, record); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByID(ctx, "tx1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if result.NetProfit != 206692 {
		t.Errorf("net profit: got %d, want 206692", result.NetProfit)
	}
}

func TestTransactionRecordStore_DuplicateKey(t *testing.T) {
	store := NewTransactionRecordStore()
	ctx := context.Background()

	record := &domain.TransactionRecord{TxID: "tx1", Timestamp: 1000}

	if err := store.Insert(ctx, record); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.Insert(ctx, record)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestTransactionRecordStore_NotFound(t *testing.T) {
	store := NewTransactionRecordStore()

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionRecordStore_GetByOwner(t *testing.T) {
	store := NewTransactionRecordStore()
	ctx := context.Background()

	records := []*domain.TransactionRecord{
		{TxID: "tx1", Owner: "owner1", Timestamp: 2000},
		{TxID: "tx2", Owner: "owner2", Timestamp: 1000},
		{TxID: "tx3", Owner: "owner1", Timestamp: 1000},
	}
	for _, r := range records {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByOwner(ctx, "owner1")
	if err != nil {
		t.Fatalf("GetByOwner failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result))
	}
	if result[0].TxID != "tx3" || result[1].TxID != "tx1" {
		t.Errorf("wrong order: %s, %s", result[0].TxID, result[1].TxID)
	}
}

func TestTransactionRecordStore_GetByTimeRange(t *testing.T) {
	store := NewTransactionRecordStore()
	ctx := context.Background()

	for _, r := range []*domain.TransactionRecord{
		{TxID: "tx1", Timestamp: 1000},
		{TxID: "tx2", Timestamp: 2000},
		{TxID: "tx3", Timestamp: 3000},
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByTimeRange(ctx, 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("expected 2 records in [2000, 3000], got %d", len(result))
	}
}
