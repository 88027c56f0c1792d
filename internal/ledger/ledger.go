// Package ledger implements the atomic account runtime the programs execute
// against. Each top-level operation runs as one indivisible unit: a single
// writer at a time, all buffered writes committed together on success,
// everything discarded on failure. A failing operation leaves every record
// byte-for-byte unchanged and emits no events.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/chowpashing/flash-loan-project/internal/domain"
)

// Sink receives events from committed operations. Publish is called after
// the commit, never for a failed operation.
type Sink interface {
	Publish(events []domain.LedgerEvent)
}

// Ledger is the in-process account store plus its dispatch lock.
type Ledger struct {
	mu      sync.Mutex
	records map[string]domain.Record
	seq     uint64
	sinks   []Sink
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		records: make(map[string]domain.Record),
	}
}

// RegisterSink adds an event sink. Not safe to call concurrently with
// Execute; register sinks during wiring.
func (l *Ledger) RegisterSink(s Sink) {
	l.sinks = append(l.sinks, s)
}

// Execute dispatches one atomic operation. Operations are serialized: no
// two interleave their effects. If fn returns an error, every write and
// event is discarded and the error is returned unchanged.
func (l *Ledger) Execute(ctx context.Context, fn func(*Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	txn := &Txn{
		base:   l.records,
		writes: make(map[string]domain.Record),
		now:    time.Now().UnixMilli(),
		seq:    l.seq,
	}

	if err := fn(txn); err != nil {
		l.mu.Unlock()
		return err
	}

	for addr, rec := range txn.writes {
		l.records[addr] = rec
	}
	l.seq = txn.seq
	events := txn.events
	l.mu.Unlock()

	// Sinks observe only committed state.
	for _, s := range l.sinks {
		s.Publish(events)
	}
	return nil
}

// View dispatches a read-only operation. Writes and events buffered by fn
// are discarded even on success.
func (l *Ledger) View(ctx context.Context, fn func(*Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	txn := &Txn{
		base:   l.records,
		writes: make(map[string]domain.Record),
		now:    time.Now().UnixMilli(),
		seq:    l.seq,
	}
	return fn(txn)
}

// Fetch returns a snapshot of the record at an address.
func (l *Ledger) Fetch(address string) (domain.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[address]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}
