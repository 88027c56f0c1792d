package gateway

import (
	"errors"
	"net/http"

	"github.com/chowpashing/flash-loan-project/internal/arbitrage"
	"github.com/chowpashing/flash-loan-project/internal/dex"
	"github.com/chowpashing/flash-loan-project/internal/flashloan"
	"github.com/chowpashing/flash-loan-project/internal/ledger"
	"github.com/chowpashing/flash-loan-project/internal/pool"
	"github.com/chowpashing/flash-loan-project/internal/token"
)

// ErrorTag maps a program error to its stable wire tag. Wrapped errors
// resolve to the tag of their sentinel.
func ErrorTag(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ledger.ErrAlreadyInitialized):
		return "ALREADY_INITIALIZED"
	case errors.Is(err, ledger.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, pool.ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, pool.ErrPoolPaused):
		return "POOL_PAUSED"
	case errors.Is(err, pool.ErrNoActiveLoan):
		return "NO_ACTIVE_LOAN"
	case errors.Is(err, pool.ErrInvalidFeeRate):
		return "INVALID_FEE_RATE"
	case errors.Is(err, pool.ErrInvalidInitialBalance):
		return "INVALID_INITIAL_BALANCE"
	case errors.Is(err, dex.ErrInvalidPool):
		return "INVALID_POOL"
	case errors.Is(err, dex.ErrSlippageExceeded):
		return "SLIPPAGE_EXCEEDED"
	case errors.Is(err, dex.ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, dex.ErrInvalidPoolName):
		return "INVALID_POOL_NAME"
	case errors.Is(err, dex.ErrInvalidAsset):
		return "INVALID_ASSET"
	case errors.Is(err, dex.ErrInsufficientLiquidity):
		return "INSUFFICIENT_LIQUIDITY"
	case errors.Is(err, flashloan.ErrLoanAlreadyActive):
		return "LOAN_ALREADY_ACTIVE"
	case errors.Is(err, flashloan.ErrInsufficientRepayment):
		return "INSUFFICIENT_REPAYMENT"
	case errors.Is(err, arbitrage.ErrInsufficientProfit):
		return "INSUFFICIENT_PROFIT"
	case errors.Is(err, arbitrage.ErrReentrancy):
		return "REENTRANCY"
	case errors.Is(err, arbitrage.ErrInvalidLoanAmount):
		return "INVALID_LOAN_AMOUNT"
	case errors.Is(err, token.ErrInsufficientBalance):
		return "INSUFFICIENT_BALANCE"
	case errors.Is(err, errBadRequest):
		return "BAD_REQUEST"
	default:
		return "INTERNAL"
	}
}

// statusFor maps an error tag to an HTTP status code.
func statusFor(tag string) int {
	switch tag {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "ALREADY_INITIALIZED", "LOAN_ALREADY_ACTIVE", "REENTRANCY":
		return http.StatusConflict
	case "UNAUTHORIZED":
		return http.StatusForbidden
	case "BAD_REQUEST", "INVALID_FEE_RATE", "INVALID_INITIAL_BALANCE",
		"INVALID_AMOUNT", "INVALID_POOL_NAME", "INVALID_LOAN_AMOUNT":
		return http.StatusBadRequest
	case "INTERNAL":
		return http.StatusInternalServerError
	default:
		// Business rejections: the request was well formed, the ledger said no.
		return http.StatusUnprocessableEntity
	}
}
