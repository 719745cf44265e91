// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"errors"

	"github.com/luxfi/pledge/token"
)

var (
	// Registry misuse
	ErrDuplicatePool = errors.New("duplicate pool")
	ErrInvalidLtv    = errors.New("invalid ltv")
	ErrUnauthorized  = errors.New("unauthorized")

	// Pool misuse
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientAllowance = token.ErrInsufficientAllowance
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrUnknownPledgeAsset    = errors.New("unknown pledge asset")
	ErrExceedsLtv            = errors.New("can't lend that much")
	ErrNoSuchDebt            = errors.New("no such debt")

	ErrUnknownPool = errors.New("unknown pool")
	ErrZeroPrice   = errors.New("asset price is zero")

	kinds = []struct {
		err  error
		kind string
	}{
		{ErrDuplicatePool, "DuplicatePool"},
		{ErrInvalidLtv, "InvalidLtv"},
		{ErrUnauthorized, "Unauthorized"},
		{ErrInvalidAmount, "InvalidAmount"},
		{ErrInsufficientAllowance, "InsufficientAllowance"},
		{ErrInsufficientBalance, "InsufficientBalance"},
		{ErrInsufficientLiquidity, "InsufficientLiquidity"},
		{ErrUnknownPledgeAsset, "UnknownPledgeAsset"},
		{ErrExceedsLtv, "ExceedsLtv"},
		{ErrNoSuchDebt, "NoSuchDebt"},
		{ErrUnknownPool, "UnknownPool"},
		{token.ErrInvalidAmount, "InvalidAmount"},
		{token.ErrOverflow, "InvalidAmount"},
	}
)

// Kind returns the name of the rejection reason carried by err, "" for nil
// and "Internal" for errors outside the lending taxonomy.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
