package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/storage"
)

// LedgerEventStore is an in-memory implementation of storage.LedgerEventStore.
type LedgerEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LedgerEvent // keyed by event_id
}

// NewLedgerEventStore creates a new in-memory event store.
func NewLedgerEventStore() *LedgerEventStore {
	return &LedgerEventStore{
		data: make(map[string]*domain.LedgerEvent),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *LedgerEventStore) Insert(_ context.Context, e *domain.LedgerEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	eventCopy := *e
	s.data[e.EventID] = &eventCopy
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *LedgerEventStore) InsertBulk(_ context.Context, events []*domain.LedgerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	for _, e := range events {
		eventCopy := *e
		s.data[e.EventID] = &eventCopy
	}
	return nil
}

// GetByAddress retrieves all events for a record address, ordered by timestamp ASC.
func (s *LedgerEventStore) GetByAddress(_ context.Context, address string) ([]*domain.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerEvent
	for _, e := range s.data {
		if e.Address == address {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sortEvents(result)
	return result, nil
}

// GetByKind retrieves all events of a given kind, ordered by timestamp ASC.
func (s *LedgerEventStore) GetByKind(_ context.Context, kind string) ([]*domain.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerEvent
	for _, e := range s.data {
		if e.Kind == kind {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sortEvents(result)
	return result, nil
}

// GetByTimeRange retrieves events within [start, end] ms (inclusive).
func (s *LedgerEventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LedgerEvent
	for _, e := range s.data {
		if e.Timestamp >= start && e.Timestamp <= end {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sortEvents(result)
	return result, nil
}

func sortEvents(events []*domain.LedgerEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		return events[i].EventID < events[j].EventID
	})
}

// Verify interface compliance at compile time.
var _ storage.LedgerEventStore = (*LedgerEventStore)(nil)
