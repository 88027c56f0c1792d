package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/storage"
)

// LedgerEventStore implements storage.LedgerEventStore using PostgreSQL.
type LedgerEventStore struct {
	pool *Pool
}

// NewLedgerEventStore creates a new LedgerEventStore.
func NewLedgerEventStore(pool *Pool) *LedgerEventStore {
	return &LedgerEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerEventStore = (*LedgerEventStore)(nil)

const insertLedgerEventQuery = `
	INSERT INTO ledger_events (
		event_id, kind, address, actor, pool, amount, amount_out, fee, timestamp
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *LedgerEventStore) Insert(ctx context.Context, e *domain.LedgerEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertLedgerEventQuery,
		e.EventID,
		e.Kind,
		e.Address,
		e.Actor,
		e.Pool,
		int64(e.Amount),
		int64(e.AmountOut),
		int64(e.Fee),
		e.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *LedgerEventStore) InsertBulk(ctx context.Context, events []*domain.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertLedgerEventQuery,
			e.EventID,
			e.Kind,
			e.Address,
			e.Actor,
			e.Pool,
			int64(e.Amount),
			int64(e.AmountOut),
			int64(e.Fee),
			e.Timestamp,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert ledger event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByAddress retrieves all events for a record address, ordered by timestamp ASC.
func (s *LedgerEventStore) GetByAddress(ctx context.Context, address string) ([]*domain.LedgerEvent, error) {
	query := `
		SELECT event_id, kind, address, actor, pool, amount, amount_out, fee, timestamp
		FROM ledger_events
		WHERE address = $1
		ORDER BY timestamp ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("get ledger events by address: %w", err)
	}
	defer rows.Close()

	return scanLedgerEvents(rows)
}

// GetByKind retrieves all events of a given kind, ordered by timestamp ASC.
func (s *LedgerEventStore) GetByKind(ctx context.Context, kind string) ([]*domain.LedgerEvent, error) {
	query := `
		SELECT event_id, kind, address, actor, pool, amount, amount_out, fee, timestamp
		FROM ledger_events
		WHERE kind = $1
		ORDER BY timestamp ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("get ledger events by kind: %w", err)
	}
	defer rows.Close()

	return scanLedgerEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] ms (inclusive).
func (s *LedgerEventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.LedgerEvent, error) {
	query := `
		SELECT event_id, kind, address, actor, pool, amount, amount_out, fee, timestamp
		FROM ledger_events
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get ledger events by time range: %w", err)
	}
	defer rows.Close()

	return scanLedgerEvents(rows)
}

// scanLedgerEvents scans multiple rows into a slice of LedgerEvent.
func scanLedgerEvents(rows pgx.Rows) ([]*domain.LedgerEvent, error) {
	var events []*domain.LedgerEvent

	for rows.Next() {
		var e domain.LedgerEvent
		var amount, amountOut, fee int64

		err := rows.Scan(
			&e.EventID,
			&e.Kind,
			&e.Address,
			&e.Actor,
			&e.Pool,
			&amount,
			&amountOut,
			&fee,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger event row: %w", err)
		}

		e.Amount = uint64(amount)
		e.AmountOut = uint64(amountOut)
		e.Fee = uint64(fee)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger event rows: %w", err)
	}

	return events, nil
}
