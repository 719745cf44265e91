// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/luxfi/pledge/api/metrics"
	"github.com/luxfi/pledge/assets"
	"github.com/luxfi/pledge/lending"
	"github.com/luxfi/pledge/state"
	"github.com/luxfi/pledge/token"

	pledgejson "github.com/luxfi/pledge/utils/json"
)

var (
	dai  = assets.Asset{ID: assets.IDFromSymbol("DAI"), Symbol: "DAI", Decimals: 18}
	usdc = assets.Asset{ID: assets.IDFromSymbol("USDC"), Symbol: "USDC", Decimals: 6}
)

type testService struct {
	admin    ids.ShortID
	registry *lending.Registry
	metrics  metric.Registry
	handler  http.Handler
}

func newTestService(t *testing.T) *testService {
	require := require.New(t)

	st := state.New(memdb.New(), log.NewNoOpLogger())
	t.Cleanup(func() {
		require.NoError(st.Close())
	})

	bank := token.NewBank()
	require.NoError(bank.Register(token.NewERC20(dai)))
	require.NoError(bank.Register(token.NewERC20(usdc)))

	ts := &testService{
		admin:   ids.GenerateTestShortID(),
		metrics: metric.NewRegistry(),
	}
	var err error
	ts.registry, err = lending.NewRegistry(lending.Config{
		State:      st,
		Tokens:     bank,
		Admin:      ts.admin,
		Log:        log.NewNoOpLogger(),
		Registerer: ts.metrics,
	})
	require.NoError(err)

	service := NewService(log.NewNoOpLogger(), noop.NewTracerProvider().Tracer("test"), st, ts.registry)
	ts.handler, err = NewHandler(service)
	require.NoError(err)
	return ts
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call invokes method and decodes its result into reply. The error message
// of a failed call is returned.
func (ts *testService) call(t *testing.T, method string, args interface{}, reply interface{}) string {
	require := require.New(t)

	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  ServiceName + "." + method,
		"params":  args,
	})
	require.NoError(err)

	req := httptest.NewRequest(http.MethodPost, "/ext/pledge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	var resp rpcResponse
	require.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	if resp.Error != nil {
		return resp.Error.Message
	}
	if reply != nil {
		require.NoError(json.Unmarshal(resp.Result, reply))
	}
	return ""
}

func (ts *testService) mustCall(t *testing.T, method string, args interface{}, reply interface{}) {
	require.Empty(t, ts.call(t, method, args, reply))
}

func amount(v int64, decimals uint8) *pledgejson.BigInt {
	return pledgejson.NewBigInt(new(big.Int).Mul(big.NewInt(v), assets.Asset{Decimals: decimals}.Unit()))
}

func ltv(bps int64) *pledgejson.BigInt {
	return pledgejson.NewBigInt(new(big.Int).Div(new(big.Int).Mul(big.NewInt(bps), assets.Wad), big.NewInt(10_000)))
}

func TestPing(t *testing.T) {
	require := require.New(t)

	ts := newTestService(t)
	var reply PingReply
	ts.mustCall(t, "Ping", &PingArgs{}, &reply)
	require.True(reply.Success)
}

func TestLendingRoundTrip(t *testing.T) {
	require := require.New(t)

	ts := newTestService(t)
	lender := ids.GenerateTestShortID()
	borrower := ids.GenerateTestShortID()

	var daiPool, usdcPool CreatePoolReply
	ts.mustCall(t, "CreatePool", &CreatePoolArgs{Caller: ts.admin, Asset: dai.ID, LTV: ltv(7_500)}, &daiPool)
	ts.mustCall(t, "CreatePool", &CreatePoolArgs{Caller: ts.admin, Asset: usdc.ID, LTV: ltv(7_500)}, &usdcPool)
	require.Equal(lending.PoolID(usdc.ID), usdcPool.PoolID)
	require.Equal(lending.PoolAddress(usdcPool.PoolID), usdcPool.Pool)
	require.Equal(usdc.ID, usdcPool.Asset)

	// lender supplies 1000 USDC, borrower pledges 100 DAI
	ts.mustCall(t, "Mint", &MintArgs{Caller: ts.admin, Asset: usdc.ID, To: lender, Amount: amount(1_000, 6)}, nil)
	ts.mustCall(t, "Mint", &MintArgs{Caller: ts.admin, Asset: dai.ID, To: borrower, Amount: amount(100, 18)}, nil)
	ts.mustCall(t, "Approve", &ApproveArgs{Caller: lender, Asset: usdc.ID, Spender: usdcPool.Pool, Amount: amount(1_000, 6)}, nil)
	ts.mustCall(t, "Approve", &ApproveArgs{Caller: borrower, Asset: dai.ID, Spender: daiPool.Pool, Amount: amount(100, 18)}, nil)
	ts.mustCall(t, "Deposit", &AmountArgs{Caller: lender, Asset: usdc.ID, Amount: amount(1_000, 6)}, nil)
	ts.mustCall(t, "Deposit", &AmountArgs{Caller: borrower, Asset: dai.ID, Amount: amount(100, 18)}, nil)

	var deposit AmountReply
	ts.mustCall(t, "GetDeposit", &UserArgs{Asset: dai.ID, User: borrower}, &deposit)
	require.Equal(amount(100, 18).String(), deposit.Amount.String())
	require.Equal("100", deposit.Formatted)

	var value AmountReply
	ts.mustCall(t, "ValueOf", &ValueOfArgs{User: borrower, Pledge: dai.ID}, &value)
	require.Equal(amount(100, 18).String(), value.Amount.String())

	// 100 DAI at 75% supports 75 USDC
	msg := ts.call(t, "Borrow", &PledgeArgs{
		AmountArgs: AmountArgs{Caller: borrower, Asset: usdc.ID, Amount: amount(76, 6)},
		Pledge:     dai.ID,
	}, nil)
	require.True(strings.HasPrefix(msg, "ExceedsLtv"), msg)
	ts.mustCall(t, "Borrow", &PledgeArgs{
		AmountArgs: AmountArgs{Caller: borrower, Asset: usdc.ID, Amount: amount(75, 6)},
		Pledge:     dai.ID,
	}, nil)

	var balance AmountReply
	ts.mustCall(t, "BalanceOf", &BalanceArgs{Asset: usdc.ID, Owner: borrower}, &balance)
	require.Equal(amount(75, 6).String(), balance.Amount.String())
	require.Equal("75", balance.Formatted)

	var pledges GetBorrowByPledgeReply
	ts.mustCall(t, "GetBorrowByPledge", &UserArgs{Asset: usdc.ID, User: borrower}, &pledges)
	require.Equal([]ids.ShortID{dai.ID}, pledges.Pledges)

	var borrowed UserTotalBorrowReply
	ts.mustCall(t, "UserTotalBorrow", &UserPledgeArgs{Asset: usdc.ID, User: borrower, Pledge: dai.ID}, &borrowed)
	require.Equal(amount(75, 6).String(), borrowed.User.String())
	require.Equal(amount(75, 6).String(), borrowed.Total.String())

	var pool PoolReply
	ts.mustCall(t, "GetPool", &PoolArgs{Asset: usdc.ID}, &pool)
	require.Equal("USDC", pool.Symbol)
	require.Equal(uint8(6), pool.Decimals)
	require.NotZero(pool.CreatedAt)
	require.Equal(amount(1_000, 6).String(), pool.TotalDeposits.String())
	require.Equal(amount(925, 6).String(), pool.TotalLiquidity.String())
	require.Equal(amount(75, 6).String(), pool.TotalBorrows.String())

	// over-repaying applies only the outstanding debt
	ts.mustCall(t, "Approve", &ApproveArgs{Caller: borrower, Asset: usdc.ID, Spender: usdcPool.Pool, Amount: amount(100, 6)}, nil)
	var repaid AmountReply
	ts.mustCall(t, "Repay", &PledgeArgs{
		AmountArgs: AmountArgs{Caller: borrower, Asset: usdc.ID, Amount: amount(100, 6)},
		Pledge:     dai.ID,
	}, &repaid)
	require.Equal(amount(75, 6).String(), repaid.Amount.String())

	ts.mustCall(t, "GetBorrowByPledge", &UserArgs{Asset: usdc.ID, User: borrower}, &pledges)
	require.Empty(pledges.Pledges)

	var withdrawn AmountReply
	ts.mustCall(t, "Withdraw", &WithdrawArgs{
		AmountArgs: AmountArgs{Caller: borrower, Asset: dai.ID},
		All:        true,
	}, &withdrawn)
	require.Equal(amount(100, 18).String(), withdrawn.Amount.String())

	var pools ListPoolsReply
	ts.mustCall(t, "ListPools", &ListPoolsArgs{}, &pools)
	require.Len(pools.Pools, 2)
	require.Equal(dai.ID, pools.Pools[0].Asset)
	require.Equal(usdc.ID, pools.Pools[1].Asset)
	require.Equal("0", pools.Pools[0].TotalDeposits.String())
}

func TestErrorKinds(t *testing.T) {
	ts := newTestService(t)
	ts.mustCall(t, "CreatePool", &CreatePoolArgs{Caller: ts.admin, Asset: dai.ID, LTV: ltv(5_000)}, nil)

	stranger := ids.GenerateTestShortID()
	huge := pledgejson.NewBigInt(new(big.Int).Lsh(big.NewInt(1), 256))
	tests := []struct {
		name   string
		method string
		args   interface{}
		kind   string
	}{
		{
			name:   "create pool by non admin",
			method: "CreatePool",
			args:   &CreatePoolArgs{Caller: stranger, Asset: usdc.ID, LTV: ltv(5_000)},
			kind:   "Unauthorized",
		},
		{
			name:   "duplicate pool",
			method: "CreatePool",
			args:   &CreatePoolArgs{Caller: ts.admin, Asset: dai.ID, LTV: ltv(5_000)},
			kind:   "DuplicatePool",
		},
		{
			name:   "ltv above one",
			method: "CreatePool",
			args:   &CreatePoolArgs{Caller: ts.admin, Asset: usdc.ID, LTV: ltv(10_001)},
			kind:   "InvalidLtv",
		},
		{
			name:   "set router by non admin",
			method: "SetRouter",
			args:   &SetHandleArgs{Caller: stranger, Handle: ids.GenerateTestShortID()},
			kind:   "Unauthorized",
		},
		{
			name:   "mint by non admin",
			method: "Mint",
			args:   &MintArgs{Caller: stranger, Asset: dai.ID, To: stranger, Amount: amount(1, 18)},
			kind:   "Unauthorized",
		},
		{
			name:   "deposit zero",
			method: "Deposit",
			args:   &AmountArgs{Caller: stranger, Asset: dai.ID, Amount: amount(0, 18)},
			kind:   "InvalidAmount",
		},
		{
			name:   "approve wider than a token balance",
			method: "Approve",
			args:   &ApproveArgs{Caller: stranger, Asset: dai.ID, Spender: stranger, Amount: huge},
			kind:   "InvalidAmount",
		},
		{
			name:   "mint past the supply limit",
			method: "Mint",
			args:   &MintArgs{Caller: ts.admin, Asset: dai.ID, To: stranger, Amount: huge},
			kind:   "InvalidAmount",
		},
		{
			name:   "deposit without allowance",
			method: "Deposit",
			args:   &AmountArgs{Caller: stranger, Asset: dai.ID, Amount: amount(1, 18)},
			kind:   "InsufficientAllowance",
		},
		{
			name:   "deposit into unknown pool",
			method: "Deposit",
			args:   &AmountArgs{Caller: stranger, Asset: usdc.ID, Amount: amount(1, 6)},
			kind:   "UnknownPool",
		},
		{
			name:   "repay without debt",
			method: "Repay",
			args: &PledgeArgs{
				AmountArgs: AmountArgs{Caller: stranger, Asset: dai.ID, Amount: amount(1, 18)},
				Pledge:     dai.ID,
			},
			kind: "NoSuchDebt",
		},
		{
			name:   "borrow against unknown pledge",
			method: "Borrow",
			args: &PledgeArgs{
				AmountArgs: AmountArgs{Caller: stranger, Asset: dai.ID, Amount: amount(1, 18)},
				Pledge:     usdc.ID,
			},
			kind: "UnknownPledgeAsset",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ts.call(t, tt.method, tt.args, nil)
			require.True(t, strings.HasPrefix(msg, tt.kind+": "), msg)
		})
	}
}

func TestSetHandles(t *testing.T) {
	require := require.New(t)

	ts := newTestService(t)
	reward := ids.GenerateTestShortID()
	router := ids.GenerateTestShortID()
	ts.mustCall(t, "SetRewardPool", &SetHandleArgs{Caller: ts.admin, Handle: reward}, nil)
	ts.mustCall(t, "SetRouter", &SetHandleArgs{Caller: ts.admin, Handle: router}, nil)

	var pools ListPoolsReply
	ts.mustCall(t, "ListPools", &ListPoolsArgs{}, &pools)
	require.Equal(reward, pools.RewardPool)
	require.Equal(router, pools.Router)
	require.Empty(pools.Pools)
}

func TestMetricsHandler(t *testing.T) {
	require := require.New(t)

	ts := newTestService(t)
	ts.mustCall(t, "CreatePool", &CreatePoolArgs{Caller: ts.admin, Asset: dai.ID, LTV: ltv(5_000)}, nil)

	gatherer := metrics.NewPrefixGatherer()
	require.NoError(gatherer.Register("pledge", ts.metrics))

	w := httptest.NewRecorder()
	NewMetricsHandler(gatherer).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ext/metrics", nil))
	require.Equal(http.StatusOK, w.Code)
	require.Contains(w.Body.String(), "pledge_operations")
	require.Contains(w.Body.String(), "pledge_pools 1")
}
