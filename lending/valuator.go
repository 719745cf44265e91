// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"fmt"
	"math/big"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/pledge/assets"

	safemath "github.com/luxfi/pledge/utils/math"
)

// DepositReader is the read-only view one pool grants another when valuing a
// pledge.
type DepositReader interface {
	Asset() assets.Asset
	DepositOf(db database.Database, user ids.ShortID) (*big.Int, error)
}

// Valuator sizes a borrower's stake in a pledge pool.
type Valuator struct {
	oracle PriceOracle
}

func NewValuator(oracle PriceOracle) *Valuator {
	if oracle == nil {
		oracle = ParOracle{}
	}
	return &Valuator{oracle: oracle}
}

// ValueOf returns user's deposit in pledge expressed in the common 18-decimal
// unit. Fractions of that unit are dropped.
func (v *Valuator) ValueOf(db database.Database, user ids.ShortID, pledge DepositReader) (*big.Int, error) {
	deposit, err := pledge.DepositOf(db, user)
	if err != nil {
		return nil, err
	}
	asset := pledge.Asset()
	price, err := v.price(asset.ID)
	if err != nil {
		return nil, err
	}
	return safemath.MulDiv(asset.Normalize(deposit), price, assets.Wad)
}

// Borrowable returns the largest amount of target, in target's base units,
// that user may owe against their stake in pledge at the given ltv (scaled by
// 1e18). The result is floored once, after every multiplication, so mixed
// precisions lose nothing beyond target's smallest unit.
func (v *Valuator) Borrowable(
	db database.Database,
	user ids.ShortID,
	pledge DepositReader,
	target assets.Asset,
	ltv *big.Int,
) (*big.Int, error) {
	deposit, err := pledge.DepositOf(db, user)
	if err != nil {
		return nil, err
	}
	if deposit.Sign() == 0 {
		return new(big.Int), nil
	}

	source := pledge.Asset()
	sourcePrice, err := v.price(source.ID)
	if err != nil {
		return nil, err
	}
	targetPrice, err := v.price(target.ID)
	if err != nil {
		return nil, err
	}

	// deposit * sourcePrice * 10^target * ltv
	// ----------------------------------------
	//   targetPrice * 10^source * 1e18
	num := new(big.Int).Mul(deposit, sourcePrice)
	num.Mul(num, target.Unit())
	den := new(big.Int).Mul(targetPrice, source.Unit())
	den.Mul(den, assets.Wad)
	return safemath.MulDiv(num, ltv, den)
}

func (v *Valuator) price(asset ids.ShortID) (*big.Int, error) {
	price, err := v.oracle.GetPrice(asset)
	if err != nil {
		return nil, err
	}
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrZeroPrice, asset)
	}
	return price, nil
}
