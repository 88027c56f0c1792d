package domain

// PoolStatus gates lending on a pool.
type PoolStatus string

const (
	PoolStatusActive PoolStatus = "ACTIVE"
	PoolStatusPaused PoolStatus = "PAUSED"
)

// PoolState is the lending pool record: a single-asset reserve with a fee
// rate, a pause switch, and aggregate lending counters. Balance decreases
// only via lend and increases only via repay (plus the initial top-up).
type PoolState struct {
	Address   string
	Authority string
	Asset     string
	Balance   uint64
	FeeBps    uint16
	Status    PoolStatus

	ActiveLoans   uint64
	TotalBorrowed uint64
	TotalRepaid   uint64

	CreatedAt   int64 // unix ms
	LastUpdated int64 // unix ms
}

// Clone implements Record.
func (p *PoolState) Clone() Record {
	cp := *p
	return &cp
}

// CanLend reports whether the pool accepts new loans.
func (p *PoolState) CanLend() bool {
	return p.Status == PoolStatusActive
}

// UtilizationRate returns borrowed/total exposure in basis points.
func (p *PoolState) UtilizationRate() uint64 {
	outstanding := p.TotalBorrowed - p.TotalRepaid
	total := p.Balance + outstanding
	if total == 0 {
		return 0
	}
	return outstanding * 10000 / total
}
