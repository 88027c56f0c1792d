// Package main runs a one-shot end-to-end scenario: a lending pool, two
// exchanges at skewed prices and one arbitrage round, printing the
// resulting records. Useful for smoke testing and demos.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/chowpashing/flash-loan-project/internal/arbitrage"
	"github.com/chowpashing/flash-loan-project/internal/dex"
	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/flashloan"
	"github.com/chowpashing/flash-loan-project/internal/identity"
	"github.com/chowpashing/flash-loan-project/internal/ledger"
	"github.com/chowpashing/flash-loan-project/internal/pool"
	"github.com/chowpashing/flash-loan-project/internal/storage/memory"
	"github.com/chowpashing/flash-loan-project/internal/token"
)

func main() {
	poolBalance := flag.Uint64("pool-balance", 1_000_000, "Initial lending pool balance")
	poolFeeBps := flag.Uint("pool-fee-bps", 100, "Lending pool fee in basis points")
	loanAmount := flag.Uint64("loan-amount", 100_000, "Flash loan principal")
	minProfit := flag.Int64("min-profit", 1, "Minimum acceptable net profit")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[scenario] ", log.LstdFlags)

	ctx := context.Background()

	l := ledger.New()
	poolProg := pool.New(l)
	dexProg := dex.New(l)
	txStore := memory.NewTransactionRecordStore()
	agent := arbitrage.New(l, txStore)

	const (
		base  = "USDC"
		quote = "SOL"
	)

	authority, trader, lp := mustKeypair(logger), mustKeypair(logger), mustKeypair(logger)

	// Lending pool
	poolAddr, err := poolProg.Initialize(ctx, authority.PublicKey(), base, *poolBalance, uint16(*poolFeeBps))
	if err != nil {
		logger.Fatalf("Initialize pool: %v", err)
	}

	// Two exchanges with a price skew: the quote asset is cheap on dex-a
	// and expensive on dex-b.
	if err := l.Execute(ctx, func(txn *ledger.Txn) error {
		token.Mint(txn, base, lp.PublicKey(), 3_000_000)
		token.Mint(txn, quote, lp.PublicKey(), 3_000_000)
		return nil
	}); err != nil {
		logger.Fatalf("Mint liquidity: %v", err)
	}

	if _, err := dexProg.InitializePool(ctx, "dex-a", base, quote, 1_000_000, 2_000_000, lp.PublicKey()); err != nil {
		logger.Fatalf("Initialize dex-a: %v", err)
	}
	if _, err := dexProg.InitializePool(ctx, "dex-b", base, quote, 2_000_000, 1_000_000, lp.PublicKey()); err != nil {
		logger.Fatalf("Initialize dex-b: %v", err)
	}

	if _, err := agent.InitializeBot(ctx, trader.PublicKey()); err != nil {
		logger.Fatalf("Initialize bot: %v", err)
	}

	logger.Printf("Running arbitrage: loan=%d pool_fee=%dbps", *loanAmount, *poolFeeBps)

	record, err := agent.ExecuteArbitrage(ctx, arbitrage.TradeParams{
		Owner:      trader.PublicKey(),
		PoolAddr:   poolAddr,
		DexA:       "dex-a",
		DexB:       "dex-b",
		LoanAmount: *loanAmount,
		MinProfit:  *minProfit,
	})
	if err != nil {
		logger.Fatalf("Arbitrage round failed: %v", err)
	}

	poolState, err := poolProg.Info(poolAddr)
	if err != nil {
		logger.Fatalf("Fetch pool: %v", err)
	}
	loanState, err := flashloan.New(l).State(trader.PublicKey())
	if err != nil {
		logger.Fatalf("Fetch loan: %v", err)
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(struct {
			Record *domain.TransactionRecord
			Pool   *domain.PoolState
			Loan   *domain.FlashLoanState
		}{record, poolState, loanState}, "", "  ")
		fmt.Println(string(output))
		return
	}

	printSummary(record, poolState, loanState)
}

func mustKeypair(logger *log.Logger) *identity.Keypair {
	kp, err := identity.Generate()
	if err != nil {
		logger.Fatalf("Generate keypair: %v", err)
	}
	return kp
}

func printSummary(t *domain.TransactionRecord, p *domain.PoolState, loan *domain.FlashLoanState) {
	fmt.Println()
	fmt.Println("=== Arbitrage Round ===")
	fmt.Printf("Tx ID:          %s\n", t.TxID)
	fmt.Printf("Loan amount:    %d\n", t.LoanAmount)
	fmt.Printf("Loan fee:       %d\n", t.Fee)
	fmt.Printf("Gross profit:   %d\n", t.GrossProfit)
	fmt.Printf("Net profit:     %d\n", t.NetProfit)
	fmt.Printf("ROI:            %d bps\n", t.ROIBps())
	fmt.Println()
	fmt.Println("=== Pool After Round ===")
	fmt.Printf("Balance:        %d\n", p.Balance)
	fmt.Printf("Active loans:   %d\n", p.ActiveLoans)
	fmt.Printf("Total borrowed: %d\n", p.TotalBorrowed)
	fmt.Printf("Total repaid:   %d\n", p.TotalRepaid)
	fmt.Println()
	fmt.Printf("Loan status:    %s\n", loan.Status)
}
