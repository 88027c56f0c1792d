package domain

// Record is a ledger-resident state record. The runtime stores records by
// deterministic address and hands out copies, so every record type must be
// cloneable without sharing mutable state.
type Record interface {
	Clone() Record
}
