// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines configuration types for the pledge daemon.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/luxfi/ids"
	"github.com/spf13/viper"

	"github.com/luxfi/pledge/assets"
)

const maxLTVBps = 10_000

var (
	errMissingPort     = errors.New("http port must be set")
	errMissingAdmin    = errors.New("admin must be set to create pools")
	errDuplicateSymbol = errors.New("duplicate asset symbol")
	errInvalidLTV      = errors.New("ltv must be at most 10000 bps")
	errInvalidAddress  = errors.New("invalid address")
)

// Config contains configuration parameters for the pledge daemon.
type Config struct {
	// HTTP API
	HTTPHost          string        `json:"httpHost"          mapstructure:"httpHost"`
	HTTPPort          uint16        `json:"httpPort"          mapstructure:"httpPort"`
	AllowedOrigins    []string      `json:"allowedOrigins"    mapstructure:"allowedOrigins"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" mapstructure:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration `json:"shutdownTimeout"   mapstructure:"shutdownTimeout"`

	// DBDir is the badgerdb directory. Empty keeps state in memory.
	DBDir string `json:"dbDir" mapstructure:"dbDir"`

	// Admin may create pools and rebind collaborators.
	Admin      string `json:"admin"      mapstructure:"admin"`
	RewardPool string `json:"rewardPool" mapstructure:"rewardPool"`
	Router     string `json:"router"     mapstructure:"router"`

	// Assets known at startup.
	Assets []Asset `json:"assets" mapstructure:"assets"`
}

// Asset describes a token to register at startup.
type Asset struct {
	Symbol   string `json:"symbol"   mapstructure:"symbol"`
	Decimals uint8  `json:"decimals" mapstructure:"decimals"`
	// LTVBps creates a pool for the asset if non-zero.
	LTVBps uint16 `json:"ltvBps" mapstructure:"ltvBps"`
	// Allocations are minted once, when the asset is first seen.
	Allocations []Allocation `json:"allocations" mapstructure:"allocations"`
}

// Allocation is a human readable amount minted to an address.
type Allocation struct {
	Address string `json:"address" mapstructure:"address"`
	Amount  string `json:"amount"  mapstructure:"amount"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		HTTPHost:          "127.0.0.1",
		HTTPPort:          9650,
		AllowedOrigins:    []string{"*"},
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Load reads configuration from v on top of the defaults.
func Load(v *viper.Viper) (Config, error) {
	config := DefaultConfig()
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return config, config.Verify()
}

// Verify returns an error if the configuration cannot be served.
func (c *Config) Verify() error {
	if c.HTTPPort == 0 {
		return errMissingPort
	}
	for _, addr := range []string{c.Admin, c.RewardPool, c.Router} {
		if _, err := ParseAddress(addr); err != nil {
			return err
		}
	}

	symbols := make(map[string]struct{}, len(c.Assets))
	for _, asset := range c.Assets {
		if _, ok := symbols[asset.Symbol]; ok {
			return fmt.Errorf("%w: %s", errDuplicateSymbol, asset.Symbol)
		}
		symbols[asset.Symbol] = struct{}{}

		if err := asset.Asset().Verify(); err != nil {
			return fmt.Errorf("asset %q: %w", asset.Symbol, err)
		}
		if asset.LTVBps > maxLTVBps {
			return fmt.Errorf("asset %q: %w", asset.Symbol, errInvalidLTV)
		}
		if asset.LTVBps > 0 && c.Admin == "" {
			return errMissingAdmin
		}
		for _, alloc := range asset.Allocations {
			if _, err := ParseAddress(alloc.Address); err != nil {
				return fmt.Errorf("asset %q: %w", asset.Symbol, err)
			}
			if _, err := assets.ParseAmount(alloc.Amount, asset.Decimals); err != nil {
				return fmt.Errorf("asset %q: %w", asset.Symbol, err)
			}
		}
	}
	return nil
}

// Asset returns the ledger description of a.
func (a Asset) Asset() assets.Asset {
	return assets.Asset{
		ID:       assets.IDFromSymbol(a.Symbol),
		Symbol:   a.Symbol,
		Decimals: a.Decimals,
	}
}

// LTV returns the pool's ltv scaled by 1e18.
func (a Asset) LTV() *big.Int {
	ltv := new(big.Int).Mul(big.NewInt(int64(a.LTVBps)), assets.Wad)
	return ltv.Quo(ltv, big.NewInt(maxLTVBps))
}

// ParseAddress parses an address, returning the empty ID for "".
func ParseAddress(s string) (ids.ShortID, error) {
	if s == "" {
		return ids.ShortEmpty, nil
	}
	id, err := ids.ShortFromString(s)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("%w %q: %w", errInvalidAddress, s, err)
	}
	return id, nil
}
