// Package token is the asset transfer capability: fungible balances per
// (asset, holder), moved inside a ledger transaction so transfers commit or
// roll back together with the operation that requested them.
package token

import (
	"errors"

	"github.com/chowpashing/flash-loan-project/internal/address"
	"github.com/chowpashing/flash-loan-project/internal/domain"
	"github.com/chowpashing/flash-loan-project/internal/ledger"
)

// ErrInsufficientBalance is returned when a holder cannot cover a transfer.
var ErrInsufficientBalance = errors.New("insufficient token balance")

// AccountAddress derives the token account address for (asset, holder).
func AccountAddress(asset, holder string) string {
	return address.Derive(address.TagTokenAccount, asset, holder)
}

// BalanceOf returns a holder's balance of an asset. A missing account reads
// as zero.
func BalanceOf(txn *ledger.Txn, asset, holder string) uint64 {
	rec, err := txn.Get(AccountAddress(asset, holder))
	if err != nil {
		return 0
	}
	return rec.(*domain.TokenAccount).Amount
}

// Mint credits new units of an asset to a holder, creating the account on
// first use.
func Mint(txn *ledger.Txn, asset, holder string, amount uint64) {
	acct := account(txn, asset, holder)
	acct.Amount += amount
	txn.Put(AccountAddress(asset, holder), acct)
}

// Transfer moves amount of asset from one holder to another. Fails with
// ErrInsufficientBalance and no effect when the sender cannot cover it.
func Transfer(txn *ledger.Txn, asset, from, to string, amount uint64) error {
	src := account(txn, asset, from)
	if src.Amount < amount {
		return ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	dst := account(txn, asset, to)

	src.Amount -= amount
	dst.Amount += amount
	txn.Put(AccountAddress(asset, from), src)
	txn.Put(AccountAddress(asset, to), dst)
	return nil
}

func account(txn *ledger.Txn, asset, holder string) *domain.TokenAccount {
	rec, err := txn.Get(AccountAddress(asset, holder))
	if err != nil {
		return &domain.TokenAccount{Asset: asset, Holder: holder}
	}
	return rec.(*domain.TokenAccount)
}
