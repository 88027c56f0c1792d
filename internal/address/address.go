// Package address derives deterministic record addresses from seed tuples.
// Callers recompute the same address the programs do, so no registry or
// discovery service is needed.
package address

import (
	"crypto/sha256"
	"strings"

	"github.com/mr-tron/base58"
)

// Seed tags for every record kind in the system.
const (
	TagPoolState        = "pool_state"
	TagFlashLoanState   = "flash_loan_state"
	TagPoolLendingState = "pool_lending_state"
	TagDexPool          = "mock_dex_pool"
	TagArbitrageBot     = "arbitrage_bot"
	TagTokenAccount     = "token_account"
)

// Derive computes a collision-resistant address for a seed tuple.
// Formula: base58(SHA256(tag|part|part|...)).
func Derive(tag string, parts ...string) string {
	var sb strings.Builder
	sb.WriteString(tag)
	for _, p := range parts {
		sb.WriteByte('|')
		sb.WriteString(p)
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return base58.Encode(sum[:])
}
