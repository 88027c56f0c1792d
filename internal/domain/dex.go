package domain

// DexPool is a two-asset constant-product pool. Both balances stay strictly
// positive after initialization, and a swap never decreases x*y.
type DexPool struct {
	Name     string
	AssetX   string
	AssetY   string
	XBalance uint64
	YBalance uint64

	// FeeBps is an extension knob; zero means the pure constant-product
	// formula with no protocol fee.
	FeeBps uint16

	CreatedAt int64 // unix ms
}

// Clone implements Record.
func (d *DexPool) Clone() Record {
	cp := *d
	return &cp
}
