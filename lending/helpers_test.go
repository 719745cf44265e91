// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"context"
	"math/big"
	"testing"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pledge/assets"
	"github.com/luxfi/pledge/state"
	"github.com/luxfi/pledge/token"
)

// bigMul multiplies a value by 10^decimals
func bigMul(v int64, decimals uint8) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

// ltvBps converts basis points to a 1e18 scaled ratio.
func ltvBps(bps int64) *big.Int {
	return new(big.Int).Div(new(big.Int).Mul(big.NewInt(bps), assets.Wad), big.NewInt(10_000))
}

type testEnv struct {
	admin    ids.ShortID
	state    *state.State
	bank     *token.Bank
	oracle   *SimplePriceOracle
	metrics  metric.Registry
	registry *Registry
}

func newTestEnv(t testing.TB) *testEnv {
	require := require.New(t)

	env := &testEnv{
		admin:   ids.GenerateTestShortID(),
		state:   state.New(memdb.New(), log.NewNoOpLogger()),
		bank:    token.NewBank(),
		oracle:  NewSimplePriceOracle(),
		metrics: metric.NewRegistry(),
	}
	t.Cleanup(func() {
		require.NoError(env.state.Close())
	})

	var err error
	env.registry, err = NewRegistry(Config{
		State:      env.state,
		Tokens:     env.bank,
		Oracle:     env.oracle,
		Admin:      env.admin,
		Log:        log.NewNoOpLogger(),
		Registerer: env.metrics,
	})
	require.NoError(err)
	return env
}

func (e *testEnv) newToken(t testing.TB, symbol string, decimals uint8) *token.ERC20 {
	tok := token.NewERC20(assets.Asset{
		ID:       ids.GenerateTestShortID(),
		Symbol:   symbol,
		Decimals: decimals,
	})
	require.NoError(t, e.bank.Register(tok))
	return tok
}

func (e *testEnv) newPool(t testing.TB, symbol string, decimals uint8, ltv *big.Int) *Pool {
	require := require.New(t)

	tok := e.newToken(t, symbol, decimals)
	created, err := e.registry.CreatePool(context.Background(), e.admin, tok.Asset().ID, ltv)
	require.NoError(err)

	pool, err := e.registry.Pool(created.Asset)
	require.NoError(err)
	return pool
}

func (e *testEnv) mint(t testing.TB, tok token.Token, to ids.ShortID, amount *big.Int) {
	require.NoError(t, e.state.Update(context.Background(), func(db database.Database) error {
		return tok.Mint(db, to, amount)
	}))
}

func (e *testEnv) approve(t testing.TB, tok token.Token, owner, spender ids.ShortID, amount *big.Int) {
	require.NoError(t, e.state.Update(context.Background(), func(db database.Database) error {
		return tok.Approve(db, owner, spender, amount)
	}))
}

func (e *testEnv) balanceOf(t testing.TB, tok token.Token, owner ids.ShortID) *big.Int {
	var balance *big.Int
	require.NoError(t, e.state.View(context.Background(), func(db database.Database) error {
		var err error
		balance, err = tok.BalanceOf(db, owner)
		return err
	}))
	return balance
}

// deposit mints amount to user, approves the pool and deposits it.
func (e *testEnv) deposit(t testing.TB, pool *Pool, user ids.ShortID, amount *big.Int) {
	e.mint(t, pool.Token(), user, amount)
	e.approve(t, pool.Token(), user, pool.Address(), amount)
	require.NoError(t, pool.Deposit(context.Background(), user, amount))
}

func (e *testEnv) getDeposit(t testing.TB, pool *Pool, user ids.ShortID) *big.Int {
	amount, err := pool.GetDeposit(context.Background(), user)
	require.NoError(t, err)
	return amount
}

// requireInvariants checks that every pool's totals reconcile with its
// depositors and with the tokens it holds.
func (e *testEnv) requireInvariants(t testing.TB, users []ids.ShortID) {
	require := require.New(t)
	ctx := context.Background()

	for _, pool := range e.registry.Pools() {
		info, err := pool.Info(ctx)
		require.NoError(err)

		deposits := new(big.Int)
		for _, user := range users {
			deposits.Add(deposits, e.getDeposit(t, pool, user))
		}
		require.Zero(info.TotalDeposits.Cmp(deposits), "deposits of %s", pool.Asset())

		lent := new(big.Int).Add(info.TotalLiquidity, info.TotalBorrows)
		require.Zero(info.TotalDeposits.Cmp(lent), "liquidity of %s", pool.Asset())
		require.GreaterOrEqual(info.TotalLiquidity.Sign(), 0)

		held := e.balanceOf(t, pool.Token(), pool.Address())
		require.Zero(info.TotalLiquidity.Cmp(held), "holdings of %s", pool.Asset())
	}
}
