package domain

// LoanStatus is the lifecycle of a flash loan obligation.
type LoanStatus string

const (
	LoanStatusActive LoanStatus = "ACTIVE"
	LoanStatusRepaid LoanStatus = "REPAID"
)

// FlashLoanState is the borrower-scoped view of an obligation. One slot per
// borrower; a repaid slot may be overwritten by a fresh borrow, but two
// simultaneously active loans per borrower are illegal.
type FlashLoanState struct {
	Borrower string
	Pool     string
	Amount   uint64
	Fee      uint64
	Status   LoanStatus

	BorrowedAt int64 // unix ms
	RepaidAt   int64 // unix ms, zero while active
}

// Clone implements Record.
func (f *FlashLoanState) Clone() Record {
	cp := *f
	return &cp
}

// TotalRepayAmount is principal plus fee.
func (f *FlashLoanState) TotalRepayAmount() uint64 {
	return f.Amount + f.Fee
}

// PoolLendingState is the pool-scoped view of the same obligation, keyed by
// (borrower, pool). It exists so the pool's aggregate counters stay O(1)
// while any party can still verify a specific borrower's debt against a
// specific pool. Its status must equal the paired FlashLoanState status at
// every committed point.
type PoolLendingState struct {
	Borrower string
	Pool     string
	Amount   uint64
	Status   LoanStatus

	BorrowedAt int64 // unix ms
	RepaidAt   int64 // unix ms, zero while active
}

// Clone implements Record.
func (p *PoolLendingState) Clone() Record {
	cp := *p
	return &cp
}
