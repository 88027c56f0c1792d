// Package arbitrage implements the agent that captures a price discrepancy
// between two exchange pools with borrowed funds. The whole round (flash
// loan, both swap legs, repayment, counter updates) is one atomic
// operation: if any step fails there is no partial counter update and no
// residual active loan.
package arbitrage

import (
	"context"
	"errors"

	"github.com/chowpashing/flash-loan-project/internal/address"
	"github.com/chowpashing/flash-loan-project/internal/dex"
	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/flashloan"
	"github.com/chowpashing/flash-loan-project/internal/idhash"
	"github.com/chowpashing/flash-loan-project/internal/ledger"
	"github.com/chowpashing/flash-loan-project/internal/storage"
	"github.com/chowpashing/flash-loan-project/internal/token"
)

// Agent errors.
var (
	// ErrInsufficientProfit is returned when the realized profit falls
	// below the caller's minimum.
	ErrInsufficientProfit = errors.New("insufficient profit")

	// ErrReentrancy is returned when a round is started while another is
	// marked executing.
	ErrReentrancy = errors.New("reentrancy detected")

	// ErrInvalidLoanAmount is returned for a zero loan.
	ErrInvalidLoanAmount = errors.New("invalid loan amount")
)

// BotAddress derives the agent record address for an owner.
func BotAddress(owner string) string {
	return address.Derive(address.TagArbitrageBot, owner)
}

// TradeParams describes one arbitrage round.
type TradeParams struct {
	Owner      string
	PoolAddr   string // lending pool
	DexA       string // pool name for the first leg (base in)
	DexB       string // pool name for the second leg (base out)
	LoanAmount uint64
	// MinProfit bounds the realized delta. A negative bound permits a
	// losing round to commit; total_profit is signed and tolerates it.
	MinProfit int64
}

// Agent exposes the arbitrage operations against one ledger. If a
// transaction record store is configured, committed rounds are persisted.
type Agent struct {
	ledger  *ledger.Ledger
	txStore storage.TransactionRecordStore
}

// New creates the agent. txStore may be nil.
func New(l *ledger.Ledger, txStore storage.TransactionRecordStore) *Agent {
	return &Agent{ledger: l, txStore: txStore}
}

// InitializeBot creates the owner's singleton agent record with counters
// zeroed.
func (a *Agent) InitializeBot(ctx context.Context, owner string) (string, error) {
	addr := BotAddress(owner)
	err := a.ledger.Execute(ctx, func(txn *ledger.Txn) error {
		return txn.Create(addr, &domain.BotState{
			Owner:     owner,
			CreatedAt: txn.Now(),
		})
	})
	if err != nil {
		return "", err
	}
	return addr, nil
}

// Bot returns the owner's agent record.
func (a *Agent) Bot(owner string) (*domain.BotState, error) {
	rec, err := a.ledger.Fetch(BotAddress(owner))
	if err != nil {
		return nil, err
	}
	state, ok := rec.(*domain.BotState)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return state, nil
}

// ExecuteArbitrage runs one atomic round: borrow base from the pool, sell
// it for quote on dexA, sell the quote back for base on dexB, repay
// principal plus fee, and book the realized delta.
func (a *Agent) ExecuteArbitrage(ctx context.Context, params TradeParams) (*domain.TransactionRecord, error) {
	var record *domain.TransactionRecord
	err := a.ledger.Execute(ctx, func(txn *ledger.Txn) error {
		var err error
		record, err = executeTx(txn, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	if a.txStore != nil {
		if err := a.txStore.Insert(ctx, record); err != nil {
			return record, err
		}
	}
	return record, nil
}

func executeTx(txn *ledger.Txn, params TradeParams) (*domain.TransactionRecord, error) {
	botAddr := BotAddress(params.Owner)
	rec, err := txn.Get(botAddr)
	if err != nil {
		return nil, err
	}
	bot, ok := rec.(*domain.BotState)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	if bot.Executing {
		return nil, ErrReentrancy
	}
	if params.LoanAmount == 0 {
		return nil, ErrInvalidLoanAmount
	}

	poolRec, err := txn.Get(params.PoolAddr)
	if err != nil {
		return nil, err
	}
	poolState, ok := poolRec.(*domain.PoolState)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	base := poolState.Asset

	dexA, err := dex.PoolTx(txn, params.DexA)
	if err != nil {
		return nil, err
	}
	quote := dexA.AssetY
	if base == dexA.AssetY {
		quote = dexA.AssetX
	}

	startBalance := token.BalanceOf(txn, base, params.Owner)

	loan, err := flashloan.FlashLoanTx(txn, params.Owner, params.PoolAddr, params.LoanAmount)
	if err != nil {
		return nil, err
	}

	// Intermediate legs run unbounded; MinProfit is the round's guard.
	outQuote, err := dex.SwapTx(txn, params.DexA, params.Owner, base, params.LoanAmount, 0)
	if err != nil {
		return nil, err
	}
	outBase, err := dex.SwapTx(txn, params.DexB, params.Owner, quote, outQuote, 0)
	if err != nil {
		return nil, err
	}

	if err := flashloan.RepayTx(txn, params.Owner, params.PoolAddr); err != nil {
		return nil, err
	}

	endBalance := token.BalanceOf(txn, base, params.Owner)
	profit := int64(endBalance) - int64(startBalance)
	if profit < params.MinProfit {
		return nil, ErrInsufficientProfit
	}

	bot.TotalTrades++
	bot.TotalProfit += profit
	txn.Put(botAddr, bot)

	txn.Emit(domain.LedgerEvent{
		Kind:    domain.EventArbitrageExecuted,
		Address: botAddr,
		Actor:   params.Owner,
		Pool:    params.PoolAddr,
		Amount:  params.LoanAmount,
		Fee:     loan.Fee,
	})

	return &domain.TransactionRecord{
		TxID:        idhash.ComputeTxID(params.Owner, params.PoolAddr, params.DexA, params.DexB, params.LoanAmount, txn.Now()),
		Owner:       params.Owner,
		Pool:        params.PoolAddr,
		DexA:        params.DexA,
		DexB:        params.DexB,
		LoanAmount:  params.LoanAmount,
		Fee:         loan.Fee,
		GrossProfit: int64(outBase) - int64(params.LoanAmount),
		NetProfit:   profit,
		Timestamp:   txn.Now(),
	}, nil
}
