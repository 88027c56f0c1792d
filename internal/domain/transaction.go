package domain

// TransactionRecord is the audit record of one completed arbitrage round:
// flash loan, both swap legs, repayment, realized outcome.
type TransactionRecord struct {
	TxID       string // deterministic hash
	Owner      string
	Pool       string
	DexA       string
	DexB       string
	LoanAmount uint64
	Fee        uint64
	// GrossProfit is the swap proceeds minus principal, before the loan fee.
	GrossProfit int64
	// NetProfit is the realized balance delta after repaying principal+fee.
	NetProfit int64
	Timestamp int64 // unix ms
}

// ROIBps returns net profit over loan amount in basis points.
// Negative for losing trades, zero when the loan amount is zero.
func (t *TransactionRecord) ROIBps() int64 {
	if t.LoanAmount == 0 {
		return 0
	}
	return t.NetProfit * 10000 / int64(t.LoanAmount)
}

// IsProfitable reports whether the round ended in the black.
func (t *TransactionRecord) IsProfitable() bool {
	return t.NetProfit > 0
}
