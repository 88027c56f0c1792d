package ledger

import (
	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/idhash"
)

// Txn is the working view of one operation. Reads see committed state plus
// the operation's own writes; nothing escapes until commit. Records cross
// the boundary as copies, so a caller mutating a returned record changes
// nothing until it calls Put.
type Txn struct {
	base   map[string]domain.Record
	writes map[string]domain.Record
	events []domain.LedgerEvent
	now    int64
	seq    uint64
}

// Get returns a copy of the record at an address, or ErrNotFound.
func (t *Txn) Get(address string) (domain.Record, error) {
	if rec, ok := t.writes[address]; ok {
		return rec.Clone(), nil
	}
	if rec, ok := t.base[address]; ok {
		return rec.Clone(), nil
	}
	return nil, ErrNotFound
}

// Has reports whether a record exists at an address.
func (t *Txn) Has(address string) bool {
	if _, ok := t.writes[address]; ok {
		return true
	}
	_, ok := t.base[address]
	return ok
}

// Put buffers a write. It becomes visible to later Gets in the same
// operation and durable only on commit.
func (t *Txn) Put(address string, rec domain.Record) {
	t.writes[address] = rec.Clone()
}

// Create buffers a write at an address that must be empty.
func (t *Txn) Create(address string, rec domain.Record) error {
	if t.Has(address) {
		return ErrAlreadyInitialized
	}
	t.Put(address, rec)
	return nil
}

// Now returns the operation's dispatch timestamp in unix ms. It is stable
// for the whole operation.
func (t *Txn) Now() int64 {
	return t.now
}

// Emit buffers an event for delivery after commit. The event id is filled
// in from a deterministic hash over the event fields and a per-ledger
// sequence number.
func (t *Txn) Emit(ev domain.LedgerEvent) {
	if ev.Timestamp == 0 {
		ev.Timestamp = t.now
	}
	ev.EventID = idhash.ComputeEventID(ev.Kind, ev.Address, ev.Actor, ev.Amount, ev.Timestamp, t.seq)
	t.seq++
	t.events = append(t.events, ev)
}
