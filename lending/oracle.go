// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/ids"

	"github.com/luxfi/pledge/assets"
)

var (
	_ PriceOracle = ParOracle{}
	_ PriceOracle = (*SimplePriceOracle)(nil)
)

// PriceOracle provides the value of one whole token of an asset in a common
// unit, scaled by 1e18.
type PriceOracle interface {
	GetPrice(asset ids.ShortID) (*big.Int, error)
}

// ParOracle prices every asset at 1.0.
type ParOracle struct{}

func (ParOracle) GetPrice(ids.ShortID) (*big.Int, error) {
	return new(big.Int).Set(assets.Wad), nil
}

// SimplePriceOracle is an in-memory oracle. Assets without a price fall back
// to par unless Strict is set. The zero value is ready to use.
type SimplePriceOracle struct {
	Strict bool

	mu     sync.RWMutex
	prices map[ids.ShortID]*big.Int
}

func NewSimplePriceOracle() *SimplePriceOracle {
	return &SimplePriceOracle{
		prices: make(map[ids.ShortID]*big.Int),
	}
}

// SetPrice sets the price for an asset.
func (o *SimplePriceOracle) SetPrice(asset ids.ShortID, price *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.prices == nil {
		o.prices = make(map[ids.ShortID]*big.Int)
	}
	o.prices[asset] = new(big.Int).Set(price)
}

// GetPrice returns the price for an asset.
func (o *SimplePriceOracle) GetPrice(asset ids.ShortID) (*big.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	price, ok := o.prices[asset]
	switch {
	case ok:
		return new(big.Int).Set(price), nil
	case o.Strict:
		return nil, fmt.Errorf("%w: %s", ErrZeroPrice, asset)
	default:
		return new(big.Int).Set(assets.Wad), nil
	}
}
