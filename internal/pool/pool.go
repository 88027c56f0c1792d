// Package pool implements the lending pool program: a single-asset reserve
// with a basis-point fee on repayments, a pausable lend gate, and O(1)
// aggregate exposure counters.
package pool

import (
	"context"
	"errors"
	"math/bits"

	"github.com/chowpashing/flash-loan-project/internal/address"
	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/ledger"
	"github.com/chowpashing/flash-loan-project/internal/token"
)

// Pool errors.
var (
	// ErrInsufficientFunds is returned when a lend exceeds the reserve.
	ErrInsufficientFunds = errors.New("insufficient funds in pool")

	// ErrPoolPaused is returned when lending against a paused pool.
	// Repayments remain permitted while paused.
	ErrPoolPaused = errors.New("pool is paused")

	// ErrNoActiveLoan is returned when repaying with nothing outstanding.
	ErrNoActiveLoan = errors.New("no active loan")

	// ErrInvalidFeeRate is returned for a fee above 10000 bps.
	ErrInvalidFeeRate = errors.New("invalid fee rate")

	// ErrInvalidInitialBalance is returned for a zero initial balance.
	ErrInvalidInitialBalance = errors.New("invalid initial balance")
)

const maxFeeBps = 10000

// Address derives the pool record address for an authority.
func Address(authority string) string {
	return address.Derive(address.TagPoolState, authority)
}

// Fee computes floor(amount * feeBps / 10000) with a 128-bit intermediate
// so the product cannot overflow.
func Fee(amount uint64, feeBps uint16) uint64 {
	hi, lo := bits.Mul64(amount, uint64(feeBps))
	q, _ := bits.Div64(hi, lo, maxFeeBps)
	return q
}

// Program exposes the pool operations against one ledger.
type Program struct {
	ledger *ledger.Ledger
}

// New creates the pool program.
func New(l *ledger.Ledger) *Program {
	return &Program{ledger: l}
}

// Initialize creates a pool record owned by authority and mints the initial
// reserve into the pool's vault. Fails with ledger.ErrAlreadyInitialized if
// the authority already has a pool.
func (p *Program) Initialize(ctx context.Context, authority, asset string, initialBalance uint64, feeBps uint16) (string, error) {
	if feeBps > maxFeeBps {
		return "", ErrInvalidFeeRate
	}
	if initialBalance == 0 {
		return "", ErrInvalidInitialBalance
	}

	addr := Address(authority)
	err := p.ledger.Execute(ctx, func(txn *ledger.Txn) error {
		state := &domain.PoolState{
			Address:     addr,
			Authority:   authority,
			Asset:       asset,
			Balance:     initialBalance,
			FeeBps:      feeBps,
			Status:      domain.PoolStatusActive,
			CreatedAt:   txn.Now(),
			LastUpdated: txn.Now(),
		}
		if err := txn.Create(addr, state); err != nil {
			return err
		}
		token.Mint(txn, asset, addr, initialBalance)

		txn.Emit(domain.LedgerEvent{
			Kind:    domain.EventPoolInitialized,
			Address: addr,
			Actor:   authority,
			Pool:    addr,
			Amount:  initialBalance,
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return addr, nil
}

// Lend runs LendTx as its own atomic operation.
func (p *Program) Lend(ctx context.Context, poolAddr, borrower string, amount uint64) error {
	return p.ledger.Execute(ctx, func(txn *ledger.Txn) error {
		return LendTx(txn, poolAddr, borrower, amount)
	})
}

// Repay runs RepayTx as its own atomic operation.
func (p *Program) Repay(ctx context.Context, poolAddr, borrower string, amount uint64) error {
	return p.ledger.Execute(ctx, func(txn *ledger.Txn) error {
		return RepayTx(txn, poolAddr, borrower, amount)
	})
}

// LendTx debits the reserve and pays the borrower from the pool vault
// within the caller's transaction. The admission check and the debit are
// one unit: a failing lend touches nothing.
func LendTx(txn *ledger.Txn, poolAddr, borrower string, amount uint64) error {
	state, err := getPool(txn, poolAddr)
	if err != nil {
		return err
	}
	if !state.CanLend() {
		return ErrPoolPaused
	}
	if amount > state.Balance {
		return ErrInsufficientFunds
	}

	state.Balance -= amount
	state.ActiveLoans++
	state.TotalBorrowed += amount
	state.LastUpdated = txn.Now()
	txn.Put(poolAddr, state)

	return token.Transfer(txn, state.Asset, poolAddr, borrower, amount)
}

// RepayTx collects amount plus fee from the borrower into the pool vault
// and credits the reserve within the caller's transaction. Permitted while
// the pool is paused, so borrowers are never trapped.
func RepayTx(txn *ledger.Txn, poolAddr, borrower string, amount uint64) error {
	state, err := getPool(txn, poolAddr)
	if err != nil {
		return err
	}
	if state.ActiveLoans == 0 {
		return ErrNoActiveLoan
	}

	fee := Fee(amount, state.FeeBps)
	if err := token.Transfer(txn, state.Asset, borrower, poolAddr, amount+fee); err != nil {
		return err
	}

	state.Balance += amount + fee
	state.ActiveLoans--
	state.TotalRepaid += amount
	state.LastUpdated = txn.Now()
	txn.Put(poolAddr, state)
	return nil
}

// EmergencyPause stops lending. Authority only.
func (p *Program) EmergencyPause(ctx context.Context, poolAddr, caller string) error {
	return p.setStatus(ctx, poolAddr, caller, domain.PoolStatusPaused)
}

// Resume reopens lending. Authority only.
func (p *Program) Resume(ctx context.Context, poolAddr, caller string) error {
	return p.setStatus(ctx, poolAddr, caller, domain.PoolStatusActive)
}

func (p *Program) setStatus(ctx context.Context, poolAddr, caller string, status domain.PoolStatus) error {
	return p.ledger.Execute(ctx, func(txn *ledger.Txn) error {
		state, err := getPool(txn, poolAddr)
		if err != nil {
			return err
		}
		if state.Authority != caller {
			return ledger.ErrUnauthorized
		}

		state.Status = status
		state.LastUpdated = txn.Now()
		txn.Put(poolAddr, state)

		txn.Emit(domain.LedgerEvent{
			Kind:    domain.EventPoolStatusChanged,
			Address: poolAddr,
			Actor:   caller,
			Pool:    poolAddr,
		})
		return nil
	})
}

// Info returns a read-only snapshot of the pool.
func (p *Program) Info(poolAddr string) (*domain.PoolState, error) {
	rec, err := p.ledger.Fetch(poolAddr)
	if err != nil {
		return nil, err
	}
	state, ok := rec.(*domain.PoolState)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return state, nil
}

func getPool(txn *ledger.Txn, poolAddr string) (*domain.PoolState, error) {
	rec, err := txn.Get(poolAddr)
	if err != nil {
		return nil, err
	}
	state, ok := rec.(*domain.PoolState)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return state, nil
}
