// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token implements fungible token balances and allowances on top of a
// key-value database.
package token

import (
	"errors"
	"math/big"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/pledge/assets"
)

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrOverflow              = errors.New("amount overflows 256 bits")
	ErrUnknownAsset          = errors.New("unknown asset")
	ErrAssetExists           = errors.New("asset already registered")
)

// Token is the fungible token interface lending pools move funds through.
// Every call reads and writes through db so callers control atomicity.
type Token interface {
	Asset() assets.Asset

	TotalSupply(db database.Database) (*big.Int, error)
	BalanceOf(db database.Database, owner ids.ShortID) (*big.Int, error)
	Allowance(db database.Database, owner, spender ids.ShortID) (*big.Int, error)

	Approve(db database.Database, owner, spender ids.ShortID, amount *big.Int) error
	Transfer(db database.Database, from, to ids.ShortID, amount *big.Int) error
	// TransferFrom moves amount from owner to to, consuming spender's
	// allowance.
	TransferFrom(db database.Database, spender, owner, to ids.ShortID, amount *big.Int) error
	Mint(db database.Database, to ids.ShortID, amount *big.Int) error
}
