// Package dex implements the two-asset exchange program. Swaps follow the
// constant-product rule: the reserve product never decreases, and both
// reserves stay strictly positive.
package dex

import (
	"context"
	"errors"
	"math"
	"math/bits"

	"github.com/chowpashing/flash-loan-project/internal/address"
	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/ledger"
	"github.com/chowpashing/flash-loan-project/internal/token"
)

// Exchange errors.
var (
	// ErrInvalidPool is returned when a pool name resolves to no record.
	ErrInvalidPool = errors.New("invalid pool")

	// ErrSlippageExceeded is returned when the output falls below the
	// caller's minimum.
	ErrSlippageExceeded = errors.New("slippage exceeded")

	// ErrInvalidAmount is returned for zero or overflowing amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidPoolName is returned for an empty or oversized pool name.
	ErrInvalidPoolName = errors.New("invalid pool name")

	// ErrInvalidAsset is returned when the input asset is neither side of
	// the pool.
	ErrInvalidAsset = errors.New("asset not in pool")

	// ErrInsufficientLiquidity is returned when a reserve cannot cover the
	// trade or the initializer cannot fund the pool.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

const maxPoolNameLen = 32

// PoolAddress derives the pool record address for a name.
func PoolAddress(name string) string {
	return address.Derive(address.TagDexPool, name)
}

// Program exposes the exchange operations against one ledger.
type Program struct {
	ledger *ledger.Ledger
	// feeBps is an extension knob applied to new pools. Zero (the default)
	// gives the pure constant-product formula.
	feeBps uint16
}

// Option configures the program.
type Option func(*Program)

// WithFeeBps sets the protocol fee, in basis points, stamped onto pools
// created by this program.
func WithFeeBps(feeBps uint16) Option {
	return func(p *Program) { p.feeBps = feeBps }
}

// New creates the exchange program.
func New(l *ledger.Ledger, opts ...Option) *Program {
	p := &Program{ledger: l}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// InitializePool creates a named pool and pulls the initial liquidity from
// the initializer's token accounts into the pool vaults.
func (p *Program) InitializePool(ctx context.Context, name, assetX, assetY string, initialX, initialY uint64, initializer string) (string, error) {
	if name == "" || len(name) > maxPoolNameLen {
		return "", ErrInvalidPoolName
	}
	if initialX == 0 || initialY == 0 {
		return "", ErrInvalidAmount
	}

	addr := PoolAddress(name)
	err := p.ledger.Execute(ctx, func(txn *ledger.Txn) error {
		rec := &domain.DexPool{
			Name:      name,
			AssetX:    assetX,
			AssetY:    assetY,
			XBalance:  initialX,
			YBalance:  initialY,
			FeeBps:    p.feeBps,
			CreatedAt: txn.Now(),
		}
		if err := txn.Create(addr, rec); err != nil {
			return err
		}

		if err := token.Transfer(txn, assetX, initializer, addr, initialX); err != nil {
			return ErrInsufficientLiquidity
		}
		if err := token.Transfer(txn, assetY, initializer, addr, initialY); err != nil {
			return ErrInsufficientLiquidity
		}

		txn.Emit(domain.LedgerEvent{
			Kind:    domain.EventDexPoolInitialized,
			Address: addr,
			Actor:   initializer,
			Pool:    addr,
			Amount:  initialX,
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return addr, nil
}

// Swap runs SwapTx as its own atomic operation.
func (p *Program) Swap(ctx context.Context, name, trader, assetIn string, amountIn, minAmountOut uint64) (uint64, error) {
	var out uint64
	err := p.ledger.Execute(ctx, func(txn *ledger.Txn) error {
		var err error
		out, err = SwapTx(txn, name, trader, assetIn, amountIn, minAmountOut)
		return err
	})
	return out, err
}

// SwapTx executes a constant-product swap within the caller's transaction.
// Output: floor(reserveOut * effIn / (reserveIn + effIn)), where effIn is
// the input less the pool's configured fee (zero by default).
func SwapTx(txn *ledger.Txn, name, trader, assetIn string, amountIn, minAmountOut uint64) (uint64, error) {
	if name == "" {
		return 0, ErrInvalidPoolName
	}
	if amountIn == 0 {
		return 0, ErrInvalidAmount
	}

	addr := PoolAddress(name)
	rec, err := txn.Get(addr)
	if err != nil {
		return 0, ErrInvalidPool
	}
	dexPool, ok := rec.(*domain.DexPool)
	if !ok {
		return 0, ErrInvalidPool
	}

	var inputIsX bool
	switch assetIn {
	case dexPool.AssetX:
		inputIsX = true
	case dexPool.AssetY:
		inputIsX = false
	default:
		return 0, ErrInvalidAsset
	}

	reserveIn, reserveOut := dexPool.XBalance, dexPool.YBalance
	assetOut := dexPool.AssetY
	if !inputIsX {
		reserveIn, reserveOut = dexPool.YBalance, dexPool.XBalance
		assetOut = dexPool.AssetX
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, ErrInsufficientLiquidity
	}

	effIn := amountIn - mulDiv(amountIn, uint64(dexPool.FeeBps), 10000)
	if reserveIn > math.MaxUint64-effIn {
		return 0, ErrInvalidAmount
	}
	amountOut := mulDiv(reserveOut, effIn, reserveIn+effIn)

	if amountOut < minAmountOut {
		return 0, ErrSlippageExceeded
	}
	if amountOut >= reserveOut {
		return 0, ErrInsufficientLiquidity
	}

	if inputIsX {
		dexPool.XBalance += amountIn
		dexPool.YBalance -= amountOut
	} else {
		dexPool.YBalance += amountIn
		dexPool.XBalance -= amountOut
	}
	txn.Put(addr, dexPool)

	if err := token.Transfer(txn, assetIn, trader, addr, amountIn); err != nil {
		return 0, err
	}
	if err := token.Transfer(txn, assetOut, addr, trader, amountOut); err != nil {
		return 0, err
	}

	txn.Emit(domain.LedgerEvent{
		Kind:      domain.EventSwapExecuted,
		Address:   addr,
		Actor:     trader,
		Pool:      addr,
		Amount:    amountIn,
		AmountOut: amountOut,
	})
	return amountOut, nil
}

// PoolTx returns a pool snapshot within the caller's transaction.
func PoolTx(txn *ledger.Txn, name string) (*domain.DexPool, error) {
	rec, err := txn.Get(PoolAddress(name))
	if err != nil {
		return nil, ErrInvalidPool
	}
	dexPool, ok := rec.(*domain.DexPool)
	if !ok {
		return nil, ErrInvalidPool
	}
	return dexPool, nil
}

// Pool returns a read-only snapshot of a pool by name.
func (p *Program) Pool(name string) (*domain.DexPool, error) {
	rec, err := p.ledger.Fetch(PoolAddress(name))
	if err != nil {
		return nil, ErrInvalidPool
	}
	dexPool, ok := rec.(*domain.DexPool)
	if !ok {
		return nil, ErrInvalidPool
	}
	return dexPool, nil
}

// mulDiv computes floor(a * b / den) with a 128-bit intermediate. Callers
// keep b <= den, so the quotient is bounded by a and fits in 64 bits.
func mulDiv(a, b, den uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, den)
	return q
}
