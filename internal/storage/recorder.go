package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/chowpashing/flash-loan-project/internal/domain"
)

// EventRecorder is a ledger sink that persists committed events to a
// LedgerEventStore. Persistence is best-effort: the ledger has already
// committed by the time Publish runs, so a failed insert is logged and
// dropped rather than failing the operation.
type EventRecorder struct {
	store   LedgerEventStore
	logger  *log.Logger
	timeout time.Duration
}

// NewEventRecorder creates an EventRecorder writing to store.
// A nil logger falls back to log.Default().
func NewEventRecorder(store LedgerEventStore, logger *log.Logger) *EventRecorder {
	if logger == nil {
		logger = log.Default()
	}
	return &EventRecorder{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Publish inserts the batch of committed events.
func (r *EventRecorder) Publish(events []domain.LedgerEvent) {
	if len(events) == 0 {
		return
	}

	batch := make([]*domain.LedgerEvent, len(events))
	for i := range events {
		e := events[i]
		batch[i] = &e
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := r.store.InsertBulk(ctx, batch)
	if err == nil {
		return
	}
	if errors.Is(err, ErrDuplicateKey) {
		// Deterministic event ids make redelivery after a restart harmless.
		return
	}
	r.logger.Printf("failed to persist %d ledger events: %v", len(batch), err)
}
