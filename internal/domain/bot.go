package domain

// BotState is the arbitrage agent's singleton record per owner.
// TotalProfit is signed: the counters tolerate a recorded loss.
type BotState struct {
	Owner       string
	Executing   bool
	TotalTrades uint64
	TotalProfit int64

	CreatedAt int64 // unix ms
}

// Clone implements Record.
func (b *BotState) Clone() Record {
	cp := *b
	return &cp
}
