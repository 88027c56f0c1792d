// Package flashloan coordinates the borrow/repay lifecycle against a
// lending pool. Each obligation is tracked twice: a borrower-scoped
// FlashLoanState and a pool-scoped PoolLendingState. Both records are
// written in the same transaction, so their statuses can never
// desynchronize at a committed point.
package flashloan

import (
	"context"
	"errors"
	"fmt"

	"github.com/chowpashing/flash-loan-project/internal/address"
	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/ledger"
	"github.com/chowpashing/flash-loan-project/internal/pool"
	"github.com/chowpashing/flash-loan-project/internal/token"
)

// Coordinator errors.
var (
	// ErrLoanAlreadyActive is returned when a borrower with an active loan
	// tries to borrow again.
	ErrLoanAlreadyActive = errors.New("loan already active")

	// ErrInsufficientRepayment is returned when the borrower cannot cover
	// principal plus fee.
	ErrInsufficientRepayment = errors.New("insufficient repayment")
)

// StateAddress derives the borrower-scoped loan record address.
func StateAddress(borrower string) string {
	return address.Derive(address.TagFlashLoanState, borrower)
}

// LendingAddress derives the pool-scoped loan record address.
func LendingAddress(borrower, poolAddr string) string {
	return address.Derive(address.TagPoolLendingState, borrower, poolAddr)
}

// Coordinator exposes the flash loan operations against one ledger.
type Coordinator struct {
	ledger *ledger.Ledger
}

// New creates the coordinator.
func New(l *ledger.Ledger) *Coordinator {
	return &Coordinator{ledger: l}
}

// FlashLoan opens a loan as one atomic operation: the pool is debited and
// both loan records are created, or nothing happens at all.
func (c *Coordinator) FlashLoan(ctx context.Context, borrower, poolAddr string, amount uint64) error {
	return c.ledger.Execute(ctx, func(txn *ledger.Txn) error {
		_, err := FlashLoanTx(txn, borrower, poolAddr, amount)
		return err
	})
}

// RepayFlashLoan settles a loan as one atomic operation: principal plus fee
// returns to the pool and both loan records flip to repaid together.
func (c *Coordinator) RepayFlashLoan(ctx context.Context, borrower, poolAddr string) error {
	return c.ledger.Execute(ctx, func(txn *ledger.Txn) error {
		return RepayTx(txn, borrower, poolAddr)
	})
}

// State returns the borrower's loan record.
func (c *Coordinator) State(borrower string) (*domain.FlashLoanState, error) {
	rec, err := c.ledger.Fetch(StateAddress(borrower))
	if err != nil {
		return nil, err
	}
	state, ok := rec.(*domain.FlashLoanState)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return state, nil
}

// LendingState returns the pool-scoped view of the borrower's loan.
func (c *Coordinator) LendingState(borrower, poolAddr string) (*domain.PoolLendingState, error) {
	rec, err := c.ledger.Fetch(LendingAddress(borrower, poolAddr))
	if err != nil {
		return nil, err
	}
	state, ok := rec.(*domain.PoolLendingState)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return state, nil
}

// FlashLoanTx opens a loan within the caller's transaction. A repaid slot
// is reused: the fresh loan overwrites it. Pool lend errors propagate
// unchanged.
func FlashLoanTx(txn *ledger.Txn, borrower, poolAddr string, amount uint64) (*domain.FlashLoanState, error) {
	stateAddr := StateAddress(borrower)
	if rec, err := txn.Get(stateAddr); err == nil {
		existing, ok := rec.(*domain.FlashLoanState)
		if ok && existing.Status == domain.LoanStatusActive {
			return nil, ErrLoanAlreadyActive
		}
	}

	poolState, err := poolOf(txn, poolAddr)
	if err != nil {
		return nil, err
	}
	fee := pool.Fee(amount, poolState.FeeBps)

	if err := pool.LendTx(txn, poolAddr, borrower, amount); err != nil {
		return nil, err
	}

	loan := &domain.FlashLoanState{
		Borrower:   borrower,
		Pool:       poolAddr,
		Amount:     amount,
		Fee:        fee,
		Status:     domain.LoanStatusActive,
		BorrowedAt: txn.Now(),
	}
	txn.Put(stateAddr, loan)
	txn.Put(LendingAddress(borrower, poolAddr), &domain.PoolLendingState{
		Borrower:   borrower,
		Pool:       poolAddr,
		Amount:     amount,
		Status:     domain.LoanStatusActive,
		BorrowedAt: txn.Now(),
	})

	txn.Emit(domain.LedgerEvent{
		Kind:    domain.EventLoanIssued,
		Address: stateAddr,
		Actor:   borrower,
		Pool:    poolAddr,
		Amount:  amount,
		Fee:     fee,
	})
	return loan, nil
}

// RepayTx settles the borrower's active loan within the caller's
// transaction.
func RepayTx(txn *ledger.Txn, borrower, poolAddr string) error {
	stateAddr := StateAddress(borrower)
	rec, err := txn.Get(stateAddr)
	if err != nil {
		return pool.ErrNoActiveLoan
	}
	loan, ok := rec.(*domain.FlashLoanState)
	if !ok || loan.Status != domain.LoanStatusActive || loan.Pool != poolAddr {
		return pool.ErrNoActiveLoan
	}

	if err := pool.RepayTx(txn, poolAddr, borrower, loan.Amount); err != nil {
		if errors.Is(err, token.ErrInsufficientBalance) {
			return fmt.Errorf("%w: need %d", ErrInsufficientRepayment, loan.TotalRepayAmount())
		}
		return err
	}

	loan.Status = domain.LoanStatusRepaid
	loan.RepaidAt = txn.Now()
	txn.Put(stateAddr, loan)

	lendingAddr := LendingAddress(borrower, poolAddr)
	lrec, err := txn.Get(lendingAddr)
	if err != nil {
		return err
	}
	lending, ok := lrec.(*domain.PoolLendingState)
	if !ok {
		return ledger.ErrNotFound
	}
	lending.Status = domain.LoanStatusRepaid
	lending.RepaidAt = txn.Now()
	txn.Put(lendingAddr, lending)

	txn.Emit(domain.LedgerEvent{
		Kind:    domain.EventLoanRepaid,
		Address: stateAddr,
		Actor:   borrower,
		Pool:    poolAddr,
		Amount:  loan.Amount,
		Fee:     loan.Fee,
	})
	return nil
}

func poolOf(txn *ledger.Txn, poolAddr string) (*domain.PoolState, error) {
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
