package storage

import (
	"context"

	"github.com/chowpashing/flash-loan-project/internal/domain"
)

// LedgerEventStore provides access to the committed-event audit trail.
type LedgerEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.LedgerEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.LedgerEvent) error

	// GetByAddress retrieves all events for a record address, ordered by timestamp ASC.
	GetByAddress(ctx context.Context, address string) ([]*domain.LedgerEvent, error)

	// GetByKind retrieves all events of a given kind, ordered by timestamp ASC.
	GetByKind(ctx context.Context, kind string) ([]*domain.LedgerEvent, error)

	// GetByTimeRange retrieves events within [start, end] ms (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.LedgerEvent, error)
}

// TransactionRecordStore provides access to completed arbitrage rounds.
type TransactionRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if tx_id exists.
	Insert(ctx context.Context, t *domain.TransactionRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, txID string) (*domain.TransactionRecord, error)

	// GetByOwner retrieves all records for an owner, ordered by timestamp ASC.
	GetByOwner(ctx context.Context, owner string) ([]*domain.TransactionRecord, error)

	// GetByTimeRange retrieves records within [start, end] ms (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransactionRecord, error)
}
