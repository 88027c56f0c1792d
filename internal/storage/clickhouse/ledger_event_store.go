package clickhouse

import (
	"context"
	"fmt"

	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/storage"
)

// LedgerEventStore implements storage.LedgerEventStore using ClickHouse.
// MergeTree does not enforce uniqueness at insert time, so duplicates are
// detected with explicit lookups before writing.
type LedgerEventStore struct {
	conn *Conn
}

// NewLedgerEventStore creates a new LedgerEventStore.
func NewLedgerEventStore(conn *Conn) *LedgerEventStore {
	return &LedgerEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LedgerEventStore = (*LedgerEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *LedgerEventStore) Insert(ctx context.Context, e *domain.LedgerEvent) error {
	return s.InsertBulk(ctx, []*domain.LedgerEvent{e})
}

// InsertBulk adds multiple events. Fails entire batch on any duplicate event_id.
func (s *LedgerEventStore) InsertBulk(ctx context.Context, events []*domain.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{})
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.EventID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, e := range events {
		exists, err := s.exists(ctx, e.EventID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ledger_events (
			event_id, kind, address, actor, pool, amount, amount_out, fee, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.EventID, e.Kind, e.Address, e.Actor, e.Pool,
			e.Amount, e.AmountOut, e.Fee, uint64(e.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAddress retrieves all events for a record address, ordered by timestamp ASC.
func (s *LedgerEventStore) GetByAddress(ctx context.Context, address string) ([]*domain.LedgerEvent, error) {
	query := `
		SELECT event_id, kind, address, actor, pool, amount, amount_out, fee, timestamp
		FROM ledger_events
		WHERE address = ?
		ORDER BY timestamp ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("query by address: %w", err)
	}
	defer rows.Close()

	return scanLedgerEvents(rows)
}

// GetByKind retrieves all events of a given kind, ordered by timestamp ASC.
func (s *LedgerEventStore) GetByKind(ctx context.Context, kind string) ([]*domain.LedgerEvent, error) {
	query := `
		SELECT event_id, kind, address, actor, pool, amount, amount_out, fee, timestamp
		FROM ledger_events
		WHERE kind = ?
		ORDER BY timestamp ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("query by kind: %w", err)
	}
	defer rows.Close()

	return scanLedgerEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] ms (inclusive).
func (s *LedgerEventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.LedgerEvent, error) {
	query := `
		SELECT event_id, kind, address, actor, pool, amount, amount_out, fee, timestamp
		FROM ledger_events
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanLedgerEvents(rows)
}

// exists checks if an event with the given id exists.
func (s *LedgerEventStore) exists(ctx context.Context, eventID string) (bool, error) {
	query := `
		SELECT count(*) FROM ledger_events
		WHERE event_id = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, eventID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanLedgerEvents scans multiple rows.
func scanLedgerEvents(rows chRows) ([]*domain.LedgerEvent, error) {
	var events []*domain.LedgerEvent

	for rows.Next() {
		var e domain.LedgerEvent
		var timestamp uint64

		err := rows.Scan(
			&e.EventID, &e.Kind, &e.Address, &e.Actor, &e.Pool,
			&e.Amount, &e.AmountOut, &e.Fee, &timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger event row: %w", err)
		}

		e.Timestamp = int64(timestamp)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger event rows: %w", err)
	}

	return events, nil
}
