package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/storage"
)

// TransactionRecordStore is an in-memory implementation of
// storage.TransactionRecordStore.
type TransactionRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransactionRecord // keyed by tx_id
}

// NewTransactionRecordStore creates a new in-memory record store.
func NewTransactionRecordStore() *TransactionRecordStore {
	return &TransactionRecordStore{
		data: make(map[string]*domain.TransactionRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if tx_id exists.
func (s *TransactionRecordStore) Insert(_ context.Context, t *domain.TransactionRecord) error {
	if t == nil || t.TxID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TxID]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *t
	s.data[t.TxID] = &recordCopy
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TransactionRecordStore) GetByID(_ context.Context, txID string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[txID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *t
	return &recordCopy, nil
}

// GetByOwner retrieves all records for an owner, ordered by timestamp ASC.
func (s *TransactionRecordStore) GetByOwner(_ context.Context, owner string) ([]*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransactionRecord
	for _, t := range s.data {
		if t.Owner == owner {
			recordCopy := *t
			result = append(result, &recordCopy)
		}
	}

	sortRecords(result)
	return result, nil
}

// GetByTimeRange retrieves records within [start, end] ms (inclusive).
func (s *TransactionRecordStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransactionRecord
	for _, t := range s.data {
		if t.Timestamp >= start && t.Timestamp <= end {
			recordCopy := *t
			result = append(result, &recordCopy)
		}
	}

	sortRecords(result)
	return result, nil
}

func sortRecords(records []*domain.TransactionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp != records[j].Timestamp {
			return records[i].Timestamp < records[j].Timestamp
		}
		return records[i].TxID < records[j].TxID
	})
}

// Verify interface compliance at compile time.
var _ storage.TransactionRecordStore = (*TransactionRecordStore)(nil)
