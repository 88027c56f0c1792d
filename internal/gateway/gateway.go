// Package gateway exposes the ledger programs over an HTTP JSON API.
// Every operation is a POST to /v1/submit with an op envelope; failures
// come back as a stable error tag so callers can branch without parsing
// messages.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/chowpashing/flash-loan-project/internal/arbitrage"
	"github.com/chowpashing/flash-loan-project/internal/dex"
	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/flashloan"
	"github.com/chowpashing/flash-loan-project/internal/ledger"
	"github.com/chowpashing/flash-loan-project/internal/observability"
	"github.com/chowpashing/flash-loan-project/internal/pool"
	"github.com/chowpashing/flash-loan-project/internal/token"
)

// Gateway routes HTTP requests to the ledger programs.
type Gateway struct {
	ledger *ledger.Ledger
	pool   *pool.Program
	dex    *dex.Program
	loans  *flashloan.Coordinator
	agent  *arbitrage.Agent
	logger *log.Logger
}

// New creates a gateway over the given programs.
// A nil logger falls back to log.Default().
func New(l *ledger.Ledger, p *pool.Program, d *dex.Program, c *flashloan.Coordinator, a *arbitrage.Agent, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{
		ledger: l,
		pool:   p,
		dex:    d,
		loans:  c,
		agent:  a,
		logger: logger,
	}
}

// Handler returns the gateway's HTTP mux.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/submit", g.handleSubmit)
	mux.HandleFunc("/v1/fetch", g.handleFetch)
	return mux
}

// envelope is the request body for /v1/submit.
type envelope struct {
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params"`
}

type submitResponse struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

func (g *Gateway) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var env envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Errorf("decode envelope: %w", err))
		return
	}

	start := time.Now()
	result, err := g.dispatch(r, &env)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		tag := ErrorTag(err)
		observability.RecordOperation(env.Op, "rejected", elapsed)
		observability.RecordOperationError(env.Op, tag)
		writeError(w, statusFor(tag), tag, err)
		return
	}

	observability.RecordOperation(env.Op, "committed", elapsed)
	writeJSON(w, http.StatusOK, submitResponse{Result: result})
}

func (g *Gateway) dispatch(r *http.Request, env *envelope) (interface{}, error) {
	ctx := r.Context()

	switch env.Op {
	case "pool_initialize":
		var p struct {
			Authority      string `json:"authority"`
			Asset          string `json:"asset"`
			InitialBalance uint64 `json:"initial_balance"`
			FeeBps         uint16 `json:"fee_bps"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		addr, err := g.pool.Initialize(ctx, p.Authority, p.Asset, p.InitialBalance, p.FeeBps)
		if err != nil {
			return nil, err
		}
		return map[string]string{"address": addr}, nil

	case "pool_lend":
		var p struct {
			Pool     string `json:"pool"`
			Borrower string `json:"borrower"`
			Amount   uint64 `json:"amount"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		return nil, g.pool.Lend(ctx, p.Pool, p.Borrower, p.Amount)

	case "pool_repay":
		var p struct {
			Pool     string `json:"pool"`
			Borrower string `json:"borrower"`
			Amount   uint64 `json:"amount"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		return nil, g.pool.Repay(ctx, p.Pool, p.Borrower, p.Amount)

	case "pool_pause":
		var p struct {
			Pool   string `json:"pool"`
			Caller string `json:"caller"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		return nil, g.pool.EmergencyPause(ctx, p.Pool, p.Caller)

	case "pool_resume":
		var p struct {
			Pool   string `json:"pool"`
			Caller string `json:"caller"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		return nil, g.pool.Resume(ctx, p.Pool, p.Caller)

	case "dex_initialize":
		var p struct {
			Name        string `json:"name"`
			AssetX      string `json:"asset_x"`
			AssetY      string `json:"asset_y"`
			InitialX    uint64 `json:"initial_x"`
			InitialY    uint64 `json:"initial_y"`
			Initializer string `json:"initializer"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		addr, err := g.dex.InitializePool(ctx, p.Name, p.AssetX, p.AssetY, p.InitialX, p.InitialY, p.Initializer)
		if err != nil {
			return nil, err
		}
		return map[string]string{"address": addr}, nil

	case "dex_swap":
		var p struct {
			Name         string `json:"name"`
			Trader       string `json:"trader"`
			AssetIn      string `json:"asset_in"`
			AmountIn     uint64 `json:"amount_in"`
			MinAmountOut uint64 `json:"min_amount_out"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		out, err := g.dex.Swap(ctx, p.Name, p.Trader, p.AssetIn, p.AmountIn, p.MinAmountOut)
		if err != nil {
			return nil, err
		}
		return map[string]uint64{"amount_out": out}, nil

	case "flash_loan":
		var p struct {
			Borrower string `json:"borrower"`
			Pool     string `json:"pool"`
			Amount   uint64 `json:"amount"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		return nil, g.loans.FlashLoan(ctx, p.Borrower, p.Pool, p.Amount)

	case "repay_flash_loan":
		var p struct {
			Borrower string `json:"borrower"`
			Pool     string `json:"pool"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		return nil, g.loans.RepayFlashLoan(ctx, p.Borrower, p.Pool)

	case "bot_initialize":
		var p struct {
			Owner string `json:"owner"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		addr, err := g.agent.InitializeBot(ctx, p.Owner)
		if err != nil {
			return nil, err
		}
		return map[string]string{"address": addr}, nil

	case "execute_arbitrage":
		var p struct {
			Owner      string `json:"owner"`
			Pool       string `json:"pool"`
			DexA       string `json:"dex_a"`
			DexB       string `json:"dex_b"`
			LoanAmount uint64 `json:"loan_amount"`
			MinProfit  int64  `json:"min_profit"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		record, err := g.agent.ExecuteArbitrage(ctx, arbitrage.TradeParams{
			Owner:      p.Owner,
			PoolAddr:   p.Pool,
			DexA:       p.DexA,
			DexB:       p.DexB,
			LoanAmount: p.LoanAmount,
			MinProfit:  p.MinProfit,
		})
		if err != nil {
			return nil, err
		}
		return record, nil

	case "mint":
		var p struct {
			Asset  string `json:"asset"`
			Holder string `json:"holder"`
			Amount uint64 `json:"amount"`
		}
		if err := json.Unmarshal(env.Params, &p); err != nil {
			return nil, badParams(err)
		}
		return nil, g.ledger.Execute(ctx, func(txn *ledger.Txn) error {
			token.Mint(txn, p.Asset, p.Holder, p.Amount)
			return nil
		})

	default:
		return nil, fmt.Errorf("%w: unknown op %q", errBadRequest, env.Op)
	}
}

// fetchResponse wraps a record snapshot with its concrete type.
type fetchResponse struct {
	Type   string      `json:"type"`
	Record interface{} `json:"record"`
}

func (g *Gateway) handleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", errors.New("address query parameter is required"))
		return
	}

	rec, err := g.ledger.Fetch(address)
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err)
		return
	}

	writeJSON(w, http.StatusOK, fetchResponse{
		Type:   recordType(rec),
		Record: rec,
	})
}

func recordType(rec domain.Record) string {
	switch rec.(type) {
	case *domain.PoolState:
		return "pool_state"
	case *domain.FlashLoanState:
		return "flash_loan_state"
	case *domain.PoolLendingState:
		return "pool_lending_state"
	case *domain.DexPool:
		return "dex_pool"
	case *domain.BotState:
		return "bot_state"
	case *domain.TokenAccount:
		return "token_account"
	default:
		return "unknown"
	}
}

var errBadRequest = errors.New("bad request")

func badParams(err error) error {
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, tag string, err error) {
	writeJSON(w, status, submitResponse{Error: tag, Detail: err.Error()})
}
