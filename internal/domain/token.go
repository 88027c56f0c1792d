package domain

// TokenAccount holds a fungible balance of one asset for one holder.
type TokenAccount struct {
	Asset  string
	Holder string
	Amount uint64
}

// Clone implements Record.
func (t *TokenAccount) Clone() Record {
	cp := *t
	return &cp
}
