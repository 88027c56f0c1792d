package flashloan

import (
	"context"
	"errors"
	"testing"

	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/ledger"
	"github.com/chowpashing/flash-loan-project/internal/pool"
	"github.com/chowpashing/flash-loan-project/internal/token"
)

const testAsset = "SOL"

func newTestCoordinator(t *testing.T) (*Coordinator, *pool.Program, *ledger.Ledger, string) {
	t.Helper()
	l := ledger.New()
	poolProg := pool.New(l)

	poolAddr, err := poolProg.Initialize(context.Background(), "authority", testAsset, 1_000_000, 100)
	if err != nil {
		t.Fatalf("pool init failed: %v", err)
	}
	return New(l), poolProg, l, poolAddr
}

func mint(t *testing.T, l *ledger.Ledger, holder string, amount uint64) {
	t.Helper()
	if err := l.Execute(context.Background(), func(txn *ledger.Txn) error {
		token.Mint(txn, testAsset, holder, amount)
		return nil
	}); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
}

func TestFlashLoan_BorrowAndRepay(t *testing.T) {
	c, poolProg, l, poolAddr := newTestCoordinator(t)
	ctx := context.Background()
	mint(t, l, "borrower", 10_000) // fee money

	if err := c.FlashLoan(ctx, "borrower", poolAddr, 500_000); err != nil {
		t.Fatalf("FlashLoan failed: %v", err)
	}

	loan, err := c.State("borrower")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if loan.Status != domain.LoanStatusActive {
		t.Errorf("loan status: got %s, want ACTIVE", loan.Status)
	}
	if loan.Amount != 500_000 {
		t.Errorf("loan amount: got %d, want 500000", loan.Amount)
	}
	if loan.Fee != 5_000 {
		t.Errorf("loan fee: got %d, want 5000", loan.Fee)
	}

	lending, err := c.LendingState("borrower", poolAddr)
	if err != nil {
		t.Fatalf("LendingState failed: %v", err)
	}
	if lending.Status != loan.Status {
		t.Errorf("record pair desynchronized: %s vs %s", loan.Status, lending.Status)
	}

	info, err := poolProg.Info(poolAddr)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Balance != 500_000 || info.ActiveLoans != 1 {
		t.Errorf("pool after borrow: balance=%d active=%d", info.Balance, info.ActiveLoans)
	}

	if err := c.RepayFlashLoan(ctx, "borrower", poolAddr); err != nil {
		t.Fatalf("RepayFlashLoan failed: %v", err)
	}

	loan, err = c.State("borrower")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	lending, err = c.LendingState("borrower", poolAddr)
	if err != nil {
		t.Fatalf("LendingState failed: %v", err)
	}
	if loan.Status != domain.LoanStatusRepaid || lending.Status != domain.LoanStatusRepaid {
		t.Errorf("statuses after repay: %s / %s", loan.Status, lending.Status)
	}

	info, err = poolProg.Info(poolAddr)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Balance != 1_005_000 {
		t.Errorf("pool balance after repay: got %d, want 1005000", info.Balance)
	}
	if info.ActiveLoans != 0 {
		t.Errorf("active loans after repay: got %d, want 0", info.ActiveLoans)
	}
}

func TestFlashLoan_DuplicateActiveLoan(t *testing.T) {
	c, poolProg, _, poolAddr := newTestCoordinator(t)
	ctx := context.Background()

	if err := c.FlashLoan(ctx, "borrower", poolAddr, 100_000); err != nil {
		t.Fatalf("first FlashLoan failed: %v", err)
	}

	err := c.FlashLoan(ctx, "borrower", poolAddr, 100_000)
	if !errors.Is(err, ErrLoanAlreadyActive) {
		t.Fatalf("expected ErrLoanAlreadyActive, got %v", err)
	}

	info, err := poolProg.Info(poolAddr)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.ActiveLoans != 1 {
		t.Errorf("active_loans incremented twice: %d", info.ActiveLoans)
	}
	if info.Balance != 900_000 {
		t.Errorf("pool debited twice: balance %d", info.Balance)
	}
}

func TestFlashLoan_PoolErrorsPropagate(t *testing.T) {
	c, poolProg, _, poolAddr := newTestCoordinator(t)
	ctx := context.Background()

	if err := c.FlashLoan(ctx, "borrower", poolAddr, 2_000_000); !errors.Is(err, pool.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := c.State("borrower"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("failed borrow left a loan record: %v", err)
	}

	if err := poolProg.EmergencyPause(ctx, poolAddr, "authority"); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := c.FlashLoan(ctx, "borrower", poolAddr, 100); !errors.Is(err, pool.ErrPoolPaused) {
		t.Errorf("expected ErrPoolPaused, got %v", err)
	}
}

func TestRepay_NoActiveLoan(t *testing.T) {
	c, _, _, poolAddr := newTestCoordinator(t)
	ctx := context.Background()

	err := c.RepayFlashLoan(ctx, "borrower", poolAddr)
	if !errors.Is(err, pool.ErrNoActiveLoan) {
		t.Errorf("expected ErrNoActiveLoan, got %v", err)
	}
}

func TestRepay_InsufficientRepayment(t *testing.T) {
	c, poolProg, _, poolAddr := newTestCoordinator(t)
	ctx := context.Background()

	// Borrower has only the principal; the 1% fee is uncovered.
	if err := c.FlashLoan(ctx, "borrower", poolAddr, 500_000); err != nil {
		t.Fatalf("FlashLoan failed: %v", err)
	}

	err := c.RepayFlashLoan(ctx, "borrower", poolAddr)
	if !errors.Is(err, ErrInsufficientRepayment) {
		t.Fatalf("expected ErrInsufficientRepayment, got %v", err)
	}

	// Nothing changed: loan still active on both records, pool untouched.
	loan, err := c.State("borrower")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	lending, err := c.LendingState("borrower", poolAddr)
	if err != nil {
		t.Fatalf("LendingState failed: %v", err)
	}
	if loan.Status != domain.LoanStatusActive || lending.Status != domain.LoanStatusActive {
		t.Errorf("failed repay flipped a status: %s / %s", loan.Status, lending.Status)
	}

	info, err := poolProg.Info(poolAddr)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Balance != 500_000 || info.ActiveLoans != 1 {
		t.Errorf("failed repay mutated pool: balance=%d active=%d", info.Balance, info.ActiveLoans)
	}
}

func TestFlashLoan_SlotReuseAfterRepay(t *testing.T) {
	c, _, l, poolAddr := newTestCoordinator(t)
	ctx := context.Background()
	mint(t, l, "borrower", 10_000)

	if err := c.FlashLoan(ctx, "borrower", poolAddr, 100_000); err != nil {
		t.Fatalf("first borrow failed: %v", err)
	}
	if err := c.RepayFlashLoan(ctx, "borrower", poolAddr); err != nil {
		t.Fatalf("first repay failed: %v", err)
	}

	// The repaid slot is overwritten by a fresh borrow.
	if err := c.FlashLoan(ctx, "borrower", poolAddr, 200_000); err != nil {
		t.Fatalf("second borrow failed: %v", err)
	}

	loan, err := c.State("borrower")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if loan.Status != domain.LoanStatusActive || loan.Amount != 200_000 {
		t.Errorf("slot not reused: status=%s amount=%d", loan.Status, loan.Amount)
	}
}

func TestState_NotFound(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	if _, err := c.State("stranger"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// Statuses of the record pair must be equal at every committed point, under
// any interleaving of borrows and repays across borrowers.
func TestRecordPair_NeverDesynchronized(t *testing.T) {
	c, _, l, poolAddr := newTestCoordinator(t)
	ctx := context.Background()

	borrowers := []string{"b1", "b2", "b3"}
	for _, b := range borrowers {
		mint(t, l, b, 10_000)
	}

	check := func() {
		t.Helper()
		for _, b := range borrowers {
			loan, err := c.State(b)
			if errors.Is(err, ledger.ErrNotFound) {
				continue
			}
			if err != nil {
				t.Fatalf("State(%s) failed: %v", b, err)
			}
			lending, err := c.LendingState(b, poolAddr)
			if err != nil {
				t.Fatalf("LendingState(%s) failed: %v", b, err)
			}
			if loan.Status != lending.Status {
				t.Fatalf("pair desynchronized for %s: %s vs %s", b, loan.Status, lending.Status)
			}
		}
	}

	for i, b := range borrowers {
		if err := c.FlashLoan(ctx, b, poolAddr, uint64(100_000*(i+1))); err != nil {
			t.Fatalf("borrow %s failed: %v", b, err)
		}
		check()
	}
	// b2 repays, b1 and b3 stay active.
	if err := c.RepayFlashLoan(ctx, "b2", poolAddr); err != nil {
		t.Fatalf("repay b2 failed: %v", err)
	}
	check()
	// A failing repay (wrong pool) must not touch either record.
	if err := c.RepayFlashLoan(ctx, "b1", "bogus-pool"); !errors.Is(err, pool.ErrNoActiveLoan) {
		t.Fatalf("expected ErrNoActiveLoan for wrong pool, got %v", err)
	}
	check()
}
