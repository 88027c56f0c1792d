package dex

import (
	"context"
	"errors"
	"testing"

	"github.com/chowpashing/flash-loan-project/internal/ledger"
	"github.com/chowpashing/flash-loan-project/internal/token"
)

const (
	assetX = "TOKEN_X"
	assetY = "TOKEN_Y"
)

func newTestDex(t *testing.T, name string, initialX, initialY uint64, opts ...Option) (*Program, *ledger.Ledger) {
	t.Helper()
	l := ledger.New()
	p := New(l, opts...)
	ctx := context.Background()

	if err := l.Execute(ctx, func(txn *ledger.Txn) error {
		token.Mint(txn, assetX, "lp", initialX)
		token.Mint(txn, assetY, "lp", initialY)
		return nil
	}); err != nil {
		t.Fatalf("funding lp failed: %v", err)
	}

	if _, err := p.InitializePool(ctx, name, assetX, assetY, initialX, initialY, "lp"); err != nil {
		t.Fatalf("InitializePool failed: %v", err)
	}
	return p, l
}

func fundTrader(t *testing.T, l *ledger.Ledger, asset string, amount uint64) {
	t.Helper()
	if err := l.Execute(context.Background(), func(txn *ledger.Txn) error {
		token.Mint(txn, asset, "trader", amount)
		return nil
	}); err != nil {
		t.Fatalf("funding trader failed: %v", err)
	}
}

func TestInitializePool_Validation(t *testing.T) {
	l := ledger.New()
	p := New(l)
	ctx := context.Background()

	if _, err := p.InitializePool(ctx, "", assetX, assetY, 1, 1, "lp"); !errors.Is(err, ErrInvalidPoolName) {
		t.Errorf("empty name: expected ErrInvalidPoolName, got %v", err)
	}
	if _, err := p.InitializePool(ctx, "a-name-well-over-the-32-character-limit", assetX, assetY, 1, 1, "lp"); !errors.Is(err, ErrInvalidPoolName) {
		t.Errorf("long name: expected ErrInvalidPoolName, got %v", err)
	}
	if _, err := p.InitializePool(ctx, "pool", assetX, assetY, 0, 1, "lp"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero x: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := p.InitializePool(ctx, "pool", assetX, assetY, 1, 0, "lp"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero y: expected ErrInvalidAmount, got %v", err)
	}
	// Unfunded initializer.
	if _, err := p.InitializePool(ctx, "pool", assetX, assetY, 1, 1, "lp"); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Errorf("unfunded lp: expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestInitializePool_Duplicate(t *testing.T) {
	p, l := newTestDex(t, "test-pool", 1000, 1000)
	ctx := context.Background()

	if err := l.Execute(ctx, func(txn *ledger.Txn) error {
		token.Mint(txn, assetX, "lp", 1000)
		token.Mint(txn, assetY, "lp", 1000)
		return nil
	}); err != nil {
		t.Fatalf("funding failed: %v", err)
	}

	_, err := p.InitializePool(ctx, "test-pool", assetX, assetY, 1000, 1000, "lp")
	if !errors.Is(err, ledger.ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestSwap_ConstantProduct(t *testing.T) {
	p, l := newTestDex(t, "test-pool", 100_000_000, 100_000_000)
	ctx := context.Background()
	fundTrader(t, l, assetX, 10_000_000)

	out, err := p.Swap(ctx, "test-pool", "trader", assetX, 10_000_000, 9_000_000)
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	// floor(100e6 * 10e6 / (100e6 + 10e6)) = 9,090,909
	if out != 9_090_909 {
		t.Errorf("amount out: got %d, want 9090909", out)
	}

	state, err := p.Pool("test-pool")
	if err != nil {
		t.Fatalf("Pool failed: %v", err)
	}
	if state.XBalance == 0 || state.YBalance == 0 {
		t.Error("a reserve hit zero")
	}

	oldProduct := uint64(100_000_000) * uint64(100_000_000)
	newProduct := state.XBalance * state.YBalance
	if newProduct < oldProduct {
		t.Errorf("reserve product decreased: %d -> %d", oldProduct, newProduct)
	}
}

func TestSwap_BothDirections(t *testing.T) {
	p, l := newTestDex(t, "test-pool", 1_000_000, 2_000_000)
	ctx := context.Background()
	fundTrader(t, l, assetY, 100_000)

	// Sell Y for X: floor(1e6 * 1e5 / (2e6 + 1e5)) = 47,619
	out, err := p.Swap(ctx, "test-pool", "trader", assetY, 100_000, 0)
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if out != 47_619 {
		t.Errorf("amount out: got %d, want 47619", out)
	}

	state, err := p.Pool("test-pool")
	if err != nil {
		t.Fatalf("Pool failed: %v", err)
	}
	if state.YBalance != 2_100_000 {
		t.Errorf("y reserve: got %d, want 2100000", state.YBalance)
	}
	if state.XBalance != 1_000_000-47_619 {
		t.Errorf("x reserve: got %d, want %d", state.XBalance, 1_000_000-47_619)
	}
}

func TestSwap_SlippageExceeded(t *testing.T) {
	p, l := newTestDex(t, "test-pool", 100_000_000, 100_000_000)
	ctx := context.Background()
	fundTrader(t, l, assetX, 10_000_000)

	_, err := p.Swap(ctx, "test-pool", "trader", assetX, 10_000_000, 9_500_000)
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}

	state, err := p.Pool("test-pool")
	if err != nil {
		t.Fatalf("Pool failed: %v", err)
	}
	if state.XBalance != 100_000_000 || state.YBalance != 100_000_000 {
		t.Error("failed swap mutated reserves")
	}
}

func TestSwap_InvalidPool(t *testing.T) {
	l := ledger.New()
	p := New(l)

	_, err := p.Swap(context.Background(), "no-such-pool", "trader", assetX, 100, 0)
	if !errors.Is(err, ErrInvalidPool) {
		t.Errorf("expected ErrInvalidPool, got %v", err)
	}
}

func TestSwap_InvalidInput(t *testing.T) {
	p, l := newTestDex(t, "test-pool", 1000, 1000)
	ctx := context.Background()
	fundTrader(t, l, "TOKEN_Z", 100)

	if _, err := p.Swap(ctx, "test-pool", "trader", assetX, 0, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := p.Swap(ctx, "test-pool", "trader", "TOKEN_Z", 100, 0); !errors.Is(err, ErrInvalidAsset) {
		t.Errorf("foreign asset: expected ErrInvalidAsset, got %v", err)
	}
}

func TestSwap_MovesTokens(t *testing.T) {
	p, l := newTestDex(t, "test-pool", 1_000_000, 1_000_000)
	ctx := context.Background()
	fundTrader(t, l, assetX, 100_000)

	out, err := p.Swap(ctx, "test-pool", "trader", assetX, 100_000, 0)
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	if err := l.View(ctx, func(txn *ledger.Txn) error {
		if got := token.BalanceOf(txn, assetX, "trader"); got != 0 {
			t.Errorf("trader kept %d TOKEN_X", got)
		}
		if got := token.BalanceOf(txn, assetY, "trader"); got != out {
			t.Errorf("trader received %d TOKEN_Y, want %d", got, out)
		}
		return nil
	}); err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestSwap_FeeKnob(t *testing.T) {
	p, l := newTestDex(t, "fee-pool", 1_000_000, 1_000_000, WithFeeBps(30))
	ctx := context.Background()
	fundTrader(t, l, assetX, 100_000)

	out, err := p.Swap(ctx, "fee-pool", "trader", assetX, 100_000, 0)
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	// effIn = 100,000 - floor(100,000*30/10000) = 99,700
	// out = floor(1e6 * 99,700 / (1e6 + 99,700)) = 90,661
	if out != 90_661 {
		t.Errorf("amount out with fee: got %d, want 90661", out)
	}
}
