package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/storage"
)

// TransactionRecordStore implements storage.TransactionRecordStore using PostgreSQL.
type TransactionRecordStore struct {
	pool *Pool
}

// NewTransactionRecordStore creates a new TransactionRecordStore.
func NewTransactionRecordStore(pool *Pool) *TransactionRecordStore {
	return &TransactionRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionRecordStore = (*TransactionRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if tx_id exists.
func (s *TransactionRecordStore) Insert(ctx context.Context, t *domain.TransactionRecord) error {
	if t == nil || t.TxID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transaction_records (
			tx_id, owner, pool, dex_a, dex_b, loan_amount, fee,
			gross_profit, net_profit, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TxID,
		t.Owner,
		t.Pool,
		t.DexA,
		t.DexB,
		int64(t.LoanAmount),
		int64(t.Fee),
		t.GrossProfit,
		t.NetProfit,
		t.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction record: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *TransactionRecordStore) GetByID(ctx context.Context, txID string) (*domain.TransactionRecord, error) {
	query := `
		SELECT tx_id, owner, pool, dex_a, dex_b, loan_amount, fee,
		       gross_profit, net_profit, timestamp
		FROM transaction_records
		WHERE tx_id = $1
	`

	row := s.pool.QueryRow(ctx, query, txID)

	t, err := scanTransactionRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction record by id: %w", err)
	}
	return t, nil
}

// GetByOwner retrieves all records for an owner, ordered by timestamp ASC.
func (s *TransactionRecordStore) GetByOwner(ctx context.Context, owner string) ([]*domain.TransactionRecord, error) {
	query := `
		SELECT tx_id, owner, pool, dex_a, dex_b, loan_amount, fee,
		       gross_profit, net_profit, timestamp
		FROM transaction_records
		WHERE owner = $1
		ORDER BY timestamp ASC, tx_id ASC
	`

	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("get transaction records by owner: %w", err)
	}
	defer rows.Close()

	return scanTransactionRecords(rows)
}

// GetByTimeRange retrieves records within [start, end] ms (inclusive).
func (s *TransactionRecordStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TransactionRecord, error) {
	query := `
		SELECT tx_id, owner, pool, dex_a, dex_b, loan_amount, fee,
		       gross_profit, net_profit, timestamp
		FROM transaction_records
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp ASC, tx_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get transaction records by time range: %w", err)
	}
	defer rows.Close()

	return scanTransactionRecords(rows)
}

// scanTransactionRecord scans a single row into a TransactionRecord.
func scanTransactionRecord(row pgx.Row) (*domain.TransactionRecord, error) {
	var t domain.TransactionRecord
	var loanAmount, fee int64

	err := row.Scan(
		&t.TxID,
		&t.Owner,
		&t.Pool,
		&t.DexA,
		&t.DexB,
		&loanAmount,
		&fee,
		&t.GrossProfit,
		&t.NetProfit,
		&t.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	t.LoanAmount = uint64(loanAmount)
	t.Fee = uint64(fee)
	return &t, nil
}

// scanTransactionRecords scans multiple rows into a slice of TransactionRecord.
func scanTransactionRecords(rows pgx.Rows) ([]*domain.TransactionRecord, error) {
	var records []*domain.TransactionRecord

	for rows.Next() {
		t, err := scanTransactionRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction record row: %w", err)
		}
		records = append(records, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction record rows: %w", err)
	}

	return records, nil
}
