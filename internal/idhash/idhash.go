package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(kind|address|actor|amount|timestamp|sequence)
// Returns hex-encoded hash (64 characters).
func ComputeEventID(kind, address, actor string, amount uint64, timestamp int64, sequence uint64) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d|%d",
		kind,
		address,
		actor,
		amount,
		timestamp,
		sequence,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeTxID computes a deterministic transaction id for an arbitrage round.
// Formula: SHA256(owner|pool|dexA|dexB|loan_amount|timestamp)
func ComputeTxID(owner, pool, dexA, dexB string, loanAmount uint64, timestamp int64) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d|%d",
		owner,
		pool,
		dexA,
		dexB,
		loanAmount,
		timestamp,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
