// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"math/big"
	"time"

	"github.com/luxfi/ids"
	"github.com/zeebo/blake3"

	"github.com/luxfi/pledge/assets"
)

const poolIDDomain = "pledge/pool"

// PoolCreated is emitted when the registry creates a pool.
type PoolCreated struct {
	PoolID ids.ID      `json:"poolID"`
	Pool   ids.ShortID `json:"pool"`
	Asset  ids.ShortID `json:"asset"`
}

// PoolInfo is a snapshot of a pool's configuration and totals.
type PoolInfo struct {
	ID             ids.ID       `json:"id"`
	Address        ids.ShortID  `json:"address"`
	Asset          assets.Asset `json:"asset"`
	LTV            *big.Int     `json:"ltv"`
	TotalDeposits  *big.Int     `json:"totalDeposits"`
	TotalLiquidity *big.Int     `json:"totalLiquidity"`
	TotalBorrows   *big.Int     `json:"totalBorrows"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// PoolID derives the identity of the pool lending asset.
func PoolID(asset ids.ShortID) ids.ID {
	h := blake3.New()
	_, _ = h.Write([]byte(poolIDDomain))
	_, _ = h.Write(asset[:])
	var id ids.ID
	copy(id[:], h.Sum(nil))
	return id
}

// PoolAddress is the account a pool holds its tokens in.
func PoolAddress(poolID ids.ID) ids.ShortID {
	var addr ids.ShortID
	copy(addr[:], poolID[:ids.ShortIDLen])
	return addr
}
