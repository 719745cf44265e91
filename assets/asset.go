// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package assets provides fixed-point amount bookkeeping for fungible assets
// of arbitrary decimal precision.
package assets

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/luxfi/ids"
	"github.com/shopspring/decimal"
	"github.com/zeebo/blake3"

	safemath "github.com/luxfi/pledge/utils/math"
)

const (
	// WadDecimals is the precision of the common comparison unit.
	WadDecimals = 18

	// MaxDecimals bounds asset precision so 10^decimals stays inside 128 bits.
	MaxDecimals = 36

	assetIDDomain = "pledge/asset"
)

var (
	ErrInvalidDecimals = errors.New("invalid decimals")
	ErrInvalidSymbol   = errors.New("invalid symbol")
	ErrInvalidAmount   = errors.New("invalid amount")

	// Wad is 1.0 in the common 18-decimal unit.
	Wad = safemath.Pow10(WadDecimals)
)

// Asset describes a fungible token by identity and precision.
type Asset struct {
	ID       ids.ShortID `json:"id"`
	Symbol   string      `json:"symbol"`
	Decimals uint8       `json:"decimals"`
}

// IDFromSymbol derives a stable asset ID from a ticker symbol.
func IDFromSymbol(symbol string) ids.ShortID {
	digest := blake3.Sum256([]byte(assetIDDomain + symbol))
	var id ids.ShortID
	copy(id[:], digest[:ids.ShortIDLen])
	return id
}

// Verify returns an error if the asset cannot be tracked.
func (a Asset) Verify() error {
	switch {
	case a.Symbol == "":
		return ErrInvalidSymbol
	case a.Decimals > MaxDecimals:
		return fmt.Errorf("%w: %d > %d", ErrInvalidDecimals, a.Decimals, MaxDecimals)
	default:
		return nil
	}
}

// Unit returns one whole token in base units, 10^decimals.
func (a Asset) Unit() *big.Int {
	return safemath.Pow10(a.Decimals)
}

func (a Asset) String() string {
	return a.Symbol
}

// Normalize converts a base-unit amount of this asset to the 18-decimal
// common unit. The conversion is exact for assets of 18 decimals or fewer and
// floors otherwise.
func (a Asset) Normalize(amount *big.Int) *big.Int {
	if a.Decimals <= WadDecimals {
		return new(big.Int).Mul(amount, safemath.Pow10(WadDecimals-a.Decimals))
	}
	return new(big.Int).Quo(amount, safemath.Pow10(a.Decimals-WadDecimals))
}

// ParseAmount parses a human readable decimal string such as "1.5" into base
// units of an asset with the given precision. More fractional digits than
// the asset supports is an error rather than a silent truncation.
func ParseAmount(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAmount, s, err)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	units := d.Shift(int32(decimals))
	if !units.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, decimals)
	}
	return units.BigInt(), nil
}

// FormatAmount renders base units as a decimal string, trimming trailing
// fractional zeros.
func FormatAmount(amount *big.Int, decimals uint8) string {
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
