package domain

// Event kinds emitted by committed operations.
const (
	EventPoolInitialized    = "POOL_INITIALIZED"
	EventPoolStatusChanged  = "POOL_STATUS_CHANGED"
	EventLoanIssued         = "LOAN_ISSUED"
	EventLoanRepaid         = "LOAN_REPAID"
	EventDexPoolInitialized = "DEX_POOL_INITIALIZED"
	EventSwapExecuted       = "SWAP_EXECUTED"
	EventArbitrageExecuted  = "ARBITRAGE_EXECUTED"
)

// LedgerEvent is an audit row describing one committed state mutation.
// Events are emitted inside a transaction and delivered to sinks only after
// commit, so a failed operation never produces an event.
type LedgerEvent struct {
	EventID   string // deterministic hash, see idhash.ComputeEventID
	Kind      string
	Address   string // primary record the event describes
	Actor     string // identity that drove the mutation
	Pool      string // lending or dex pool involved, if any
	Amount    uint64
	AmountOut uint64 // swap output, zero otherwise
	Fee       uint64
	Timestamp int64 // unix ms
}
