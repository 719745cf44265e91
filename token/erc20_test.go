// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"math/big"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pledge/assets"
)

func newTestToken(decimals uint8) *ERC20 {
	return NewERC20(assets.Asset{
		ID:       ids.GenerateTestShortID(),
		Symbol:   "TST",
		Decimals: decimals,
	})
}

func TestMintAndTransfer(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	tok := newTestToken(18)
	alice := ids.GenerateTestShortID()
	bob := ids.GenerateTestShortID()

	require.NoError(tok.Mint(db, alice, big.NewInt(1_000)))
	require.NoError(tok.Transfer(db, alice, bob, big.NewInt(400)))

	balance, err := tok.BalanceOf(db, alice)
	require.NoError(err)
	require.Zero(balance.Cmp(big.NewInt(600)))

	balance, err = tok.BalanceOf(db, bob)
	require.NoError(err)
	require.Zero(balance.Cmp(big.NewInt(400)))

	supply, err := tok.TotalSupply(db)
	require.NoError(err)
	require.Zero(supply.Cmp(big.NewInt(1_000)))

	err = tok.Transfer(db, bob, alice, big.NewInt(401))
	require.ErrorIs(err, ErrInsufficientFunds)

	// Self transfers are no-ops once the balance check passes.
	require.NoError(tok.Transfer(db, alice, alice, big.NewInt(600)))
	balance, err = tok.BalanceOf(db, alice)
	require.NoError(err)
	require.Zero(balance.Cmp(big.NewInt(600)))
}

func TestTransferFrom(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	tok := newTestToken(6)
	owner := ids.GenerateTestShortID()
	spender := ids.GenerateTestShortID()
	to := ids.GenerateTestShortID()

	require.NoError(tok.Mint(db, owner, big.NewInt(100)))

	err := tok.TransferFrom(db, spender, owner, to, big.NewInt(1))
	require.ErrorIs(err, ErrInsufficientAllowance)

	require.NoError(tok.Approve(db, owner, spender, big.NewInt(500)))

	// Allowance covers it but the balance doesn't.
	err = tok.TransferFrom(db, spender, owner, to, big.NewInt(101))
	require.ErrorIs(err, ErrInsufficientFunds)

	allowance, err := tok.Allowance(db, owner, spender)
	require.NoError(err)
	require.Zero(allowance.Cmp(big.NewInt(500)))

	require.NoError(tok.TransferFrom(db, spender, owner, to, big.NewInt(60)))

	allowance, err = tok.Allowance(db, owner, spender)
	require.NoError(err)
	require.Zero(allowance.Cmp(big.NewInt(440)))

	balance, err := tok.BalanceOf(db, to)
	require.NoError(err)
	require.Zero(balance.Cmp(big.NewInt(60)))
}

func TestInvalidAmounts(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	tok := newTestToken(18)
	alice := ids.GenerateTestShortID()

	require.ErrorIs(tok.Mint(db, alice, big.NewInt(-1)), ErrInvalidAmount)
	require.ErrorIs(tok.Approve(db, alice, alice, nil), ErrInvalidAmount)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	require.ErrorIs(tok.Mint(db, alice, tooBig), ErrOverflow)

	maxSupply := new(big.Int).Sub(tooBig, big.NewInt(1))
	require.NoError(tok.Mint(db, alice, maxSupply))
	require.ErrorIs(tok.Mint(db, alice, big.NewInt(1)), ErrOverflow)
}

func TestTokensAreIsolated(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	a := newTestToken(18)
	b := newTestToken(6)
	alice := ids.GenerateTestShortID()

	require.NoError(a.Mint(db, alice, big.NewInt(5)))

	balance, err := b.BalanceOf(db, alice)
	require.NoError(err)
	require.Zero(balance.Sign())
}

func TestBank(t *testing.T) {
	require := require.New(t)

	bank := NewBank()
	a := newTestToken(18)
	b := newTestToken(6)

	require.NoError(bank.Register(a))
	require.NoError(bank.Register(b))
	require.ErrorIs(bank.Register(a), ErrAssetExists)

	got, err := bank.Token(b.Asset().ID)
	require.NoError(err)
	require.Equal(b, got)

	_, err = bank.Token(ids.GenerateTestShortID())
	require.ErrorIs(err, ErrUnknownAsset)

	require.Equal([]Token{a, b}, bank.Tokens())

	bad := NewERC20(assets.Asset{ID: ids.GenerateTestShortID(), Symbol: "X", Decimals: 77})
	require.ErrorIs(bank.Register(bad), assets.ErrInvalidDecimals)
}
