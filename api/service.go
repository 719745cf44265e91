// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api exposes the lending registry over JSON-RPC.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/luxfi/pledge/assets"
	"github.com/luxfi/pledge/lending"
	"github.com/luxfi/pledge/state"
	"github.com/luxfi/pledge/utils/json"
)

// Service provides the RPC API for the lending registry.
type Service struct {
	log      log.Logger
	tracer   trace.Tracer
	state    *state.State
	registry *lending.Registry
}

// NewService creates a new API service. A nil tracer disables spans.
func NewService(logger log.Logger, tracer trace.Tracer, st *state.State, registry *lending.Registry) *Service {
	return &Service{
		log:      logger,
		tracer:   tracer,
		state:    st,
		registry: registry,
	}
}

func (s *Service) span(r *http.Request, method string) (context.Context, func(error) error) {
	ctx := r.Context()
	if s.tracer == nil {
		return ctx, func(err error) error {
			return wrap(err)
		}
	}
	ctx, span := s.tracer.Start(ctx, "pledge."+method)
	return ctx, func(err error) error {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("kind", lending.Kind(err)))
		}
		span.End()
		return wrap(err)
	}
}

// wrap prefixes err with its kind so clients can match on it.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", lending.Kind(err), err)
}

// ============================================
// Health and Status APIs
// ============================================

type PingArgs struct{}

type PingReply struct {
	Success bool  `json:"success"`
	Time    int64 `json:"time"`
}

// Ping returns a simple health check response.
func (*Service) Ping(_ *http.Request, _ *PingArgs, reply *PingReply) error {
	reply.Success = true
	reply.Time = time.Now().UnixNano()
	return nil
}

// ============================================
// Registry APIs
// ============================================

type CreatePoolArgs struct {
	Caller ids.ShortID `json:"caller"`
	Asset  ids.ShortID `json:"asset"`
	// LTV in 18-decimal fixed point, 0.5 is 500000000000000000
	LTV *json.BigInt `json:"ltv"`
}

type CreatePoolReply struct {
	PoolID ids.ID      `json:"poolID"`
	Pool   ids.ShortID `json:"pool"`
	Asset  ids.ShortID `json:"asset"`
}

// CreatePool creates the pool lending args.Asset.
func (s *Service) CreatePool(r *http.Request, args *CreatePoolArgs, reply *CreatePoolReply) error {
	ctx, end := s.span(r, "CreatePool")
	event, err := s.registry.CreatePool(ctx, args.Caller, args.Asset, args.LTV.Int())
	if err != nil {
		return end(err)
	}
	reply.PoolID = event.PoolID
	reply.Pool = event.Pool
	reply.Asset = event.Asset
	return end(nil)
}

type SetHandleArgs struct {
	Caller ids.ShortID `json:"caller"`
	Handle ids.ShortID `json:"handle"`
}

type EmptyReply struct{}

func (s *Service) SetRewardPool(r *http.Request, args *SetHandleArgs, _ *EmptyReply) error {
	ctx, end := s.span(r, "SetRewardPool")
	return end(s.registry.SetRewardPool(ctx, args.Caller, args.Handle))
}

func (s *Service) SetRouter(r *http.Request, args *SetHandleArgs, _ *EmptyReply) error {
	ctx, end := s.span(r, "SetRouter")
	return end(s.registry.SetRouter(ctx, args.Caller, args.Handle))
}

type PoolArgs struct {
	Asset ids.ShortID `json:"asset"`
}

// PoolReply is the JSON form of a pool snapshot. Amounts are decimal
// strings in the pool asset's native units.
type PoolReply struct {
	ID             ids.ID       `json:"id"`
	Address        ids.ShortID  `json:"address"`
	Asset          ids.ShortID  `json:"asset"`
	Symbol         string       `json:"symbol"`
	Decimals       uint8        `json:"decimals"`
	LTV            *json.BigInt `json:"ltv"`
	TotalDeposits  *json.BigInt `json:"totalDeposits"`
	TotalLiquidity *json.BigInt `json:"totalLiquidity"`
	TotalBorrows   *json.BigInt `json:"totalBorrows"`
	CreatedAt      json.Uint64  `json:"createdAt"`
}

func newPoolReply(info *lending.PoolInfo) PoolReply {
	return PoolReply{
		ID:             info.ID,
		Address:        info.Address,
		Asset:          info.Asset.ID,
		Symbol:         info.Asset.Symbol,
		Decimals:       info.Asset.Decimals,
		LTV:            json.NewBigInt(info.LTV),
		TotalDeposits:  json.NewBigInt(info.TotalDeposits),
		TotalLiquidity: json.NewBigInt(info.TotalLiquidity),
		TotalBorrows:   json.NewBigInt(info.TotalBorrows),
		CreatedAt:      json.Uint64(info.CreatedAt.Unix()),
	}
}

func (s *Service) GetPool(r *http.Request, args *PoolArgs, reply *PoolReply) error {
	ctx, end := s.span(r, "GetPool")
	pool, err := s.registry.Pool(args.Asset)
	if err != nil {
		return end(err)
	}
	info, err := pool.Info(ctx)
	if err != nil {
		return end(err)
	}
	*reply = newPoolReply(info)
	return end(nil)
}

type ListPoolsArgs struct{}

type ListPoolsReply struct {
	Pools      []PoolReply `json:"pools"`
	RewardPool ids.ShortID `json:"rewardPool"`
	Router     ids.ShortID `json:"router"`
}

// ListPools returns every pool in creation order.
func (s *Service) ListPools(r *http.Request, _ *ListPoolsArgs, reply *ListPoolsReply) error {
	ctx, end := s.span(r, "ListPools")
	pools := s.registry.Pools()
	reply.Pools = make([]PoolReply, 0, len(pools))
	for _, pool := range pools {
		info, err := pool.Info(ctx)
		if err != nil {
			return end(err)
		}
		reply.Pools = append(reply.Pools, newPoolReply(info))
	}
	reply.RewardPool = s.registry.RewardPool()
	reply.Router = s.registry.Router()
	return end(nil)
}

// ============================================
// Token APIs
// ============================================

type MintArgs struct {
	Caller ids.ShortID  `json:"caller"`
	Asset  ids.ShortID  `json:"asset"`
	To     ids.ShortID  `json:"to"`
	Amount *json.BigInt `json:"amount"`
}

// Mint credits new tokens to args.To. Only the admin may mint.
func (s *Service) Mint(r *http.Request, args *MintArgs, _ *EmptyReply) error {
	ctx, end := s.span(r, "Mint")
	if args.Caller == ids.ShortEmpty || args.Caller != s.registry.Admin() {
		return end(lending.ErrUnauthorized)
	}
	tok, err := s.registry.Tokens().Token(args.Asset)
	if err != nil {
		return end(err)
	}
	err = s.state.Update(ctx, func(db database.Database) error {
		return tok.Mint(db, args.To, args.Amount.Int())
	})
	if err == nil {
		s.log.Info("minted",
			log.Stringer("asset", args.Asset),
			log.Stringer("to", args.To),
			log.Stringer("amount", args.Amount),
		)
	}
	return end(err)
}

type ApproveArgs struct {
	Caller  ids.ShortID  `json:"caller"`
	Asset   ids.ShortID  `json:"asset"`
	Spender ids.ShortID  `json:"spender"`
	Amount  *json.BigInt `json:"amount"`
}

// Approve sets the caller's allowance for args.Spender, usually a pool
// address, to args.Amount.
func (s *Service) Approve(r *http.Request, args *ApproveArgs, _ *EmptyReply) error {
	ctx, end := s.span(r, "Approve")
	tok, err := s.registry.Tokens().Token(args.Asset)
	if err != nil {
		return end(err)
	}
	return end(s.state.Update(ctx, func(db database.Database) error {
		return tok.Approve(db, args.Caller, args.Spender, args.Amount.Int())
	}))
}

type BalanceArgs struct {
	Asset ids.ShortID `json:"asset"`
	Owner ids.ShortID `json:"owner"`
}

type AmountReply struct {
	Amount *json.BigInt `json:"amount"`
	// Formatted is Amount with the asset's decimal point applied.
	Formatted string `json:"formatted"`
}

func (s *Service) BalanceOf(r *http.Request, args *BalanceArgs, reply *AmountReply) error {
	ctx, end := s.span(r, "BalanceOf")
	tok, err := s.registry.Tokens().Token(args.Asset)
	if err != nil {
		return end(err)
	}
	err = s.state.View(ctx, func(db database.Database) error {
		balance, err := tok.BalanceOf(db, args.Owner)
		if err != nil {
			return err
		}
		reply.Amount = json.NewBigInt(balance)
		reply.Formatted = assets.FormatAmount(balance, tok.Asset().Decimals)
		return nil
	})
	return end(err)
}

// ============================================
// Pool APIs
// ============================================

type AmountArgs struct {
	Caller ids.ShortID  `json:"caller"`
	Asset  ids.ShortID  `json:"asset"`
	Amount *json.BigInt `json:"amount"`
}

// Deposit moves args.Amount from the caller into the pool of args.Asset.
func (s *Service) Deposit(r *http.Request, args *AmountArgs, _ *EmptyReply) error {
	ctx, end := s.span(r, "Deposit")
	pool, err := s.registry.Pool(args.Asset)
	if err != nil {
		return end(err)
	}
	return end(pool.Deposit(ctx, args.Caller, args.Amount.Int()))
}

type WithdrawArgs struct {
	AmountArgs
	All bool `json:"all"`
}

func (s *Service) Withdraw(r *http.Request, args *WithdrawArgs, reply *AmountReply) error {
	ctx, end := s.span(r, "Withdraw")
	pool, err := s.registry.Pool(args.Asset)
	if err != nil {
		return end(err)
	}
	withdrawn, err := pool.Withdraw(ctx, args.Caller, args.Amount.Int(), args.All)
	if err != nil {
		return end(err)
	}
	reply.Amount = json.NewBigInt(withdrawn)
	reply.Formatted = assets.FormatAmount(withdrawn, pool.Asset().Decimals)
	return end(nil)
}

type PledgeArgs struct {
	AmountArgs
	Pledge ids.ShortID `json:"pledge"`
}

// Borrow lends args.Amount of args.Asset to the caller against their
// deposit in the pool of args.Pledge.
func (s *Service) Borrow(r *http.Request, args *PledgeArgs, _ *EmptyReply) error {
	ctx, end := s.span(r, "Borrow")
	pool, err := s.registry.Pool(args.Asset)
	if err != nil {
		return end(err)
	}
	return end(pool.Borrow(ctx, args.Caller, args.Pledge, args.Amount.Int()))
}

// Repay returns up to args.Amount of the caller's debt against args.Pledge.
// The amount actually applied is returned.
func (s *Service) Repay(r *http.Request, args *PledgeArgs, reply *AmountReply) error {
	ctx, end := s.span(r, "Repay")
	pool, err := s.registry.Pool(args.Asset)
	if err != nil {
		return end(err)
	}
	applied, err := pool.Repay(ctx, args.Caller, args.Pledge, args.Amount.Int())
	if err != nil {
		return end(err)
	}
	reply.Amount = json.NewBigInt(applied)
	reply.Formatted = assets.FormatAmount(applied, pool.Asset().Decimals)
	return end(nil)
}

type UserArgs struct {
	Asset ids.ShortID `json:"asset"`
	User  ids.ShortID `json:"user"`
}

func (s *Service) GetDeposit(r *http.Request, args *UserArgs, reply *AmountReply) error {
	ctx, end := s.span(r, "GetDeposit")
	pool, err := s.registry.Pool(args.Asset)
	if err != nil {
		return end(err)
	}
	amount, err := pool.GetDeposit(ctx, args.User)
	if err != nil {
		return end(err)
	}
	reply.Amount = json.NewBigInt(amount)
	reply.Formatted = assets.FormatAmount(amount, pool.Asset().Decimals)
	return end(nil)
}

type GetBorrowByPledgeReply struct {
	Pledges []ids.ShortID `json:"pledges"`
}

func (s *Service) GetBorrowByPledge(r *http.Request, args *UserArgs, reply *GetBorrowByPledgeReply) error {
	ctx, end := s.span(r, "GetBorrowByPledge")
	pool, err := s.registry.Pool(args.Asset)
	if err != nil {
		return end(err)
	}
	pledges, err := pool.GetBorrowByPledge(ctx, args.User)
	if err != nil {
		return end(err)
	}
	reply.Pledges = pledges
	if reply.Pledges == nil {
		reply.Pledges = []ids.ShortID{}
	}
	return end(nil)
}

type UserPledgeArgs struct {
	Asset  ids.ShortID `json:"asset"`
	User   ids.ShortID `json:"user"`
	Pledge ids.ShortID `json:"pledge"`
}

type UserTotalBorrowReply struct {
	User  *json.BigInt `json:"user"`
	Total *json.BigInt `json:"total"`
}

func (s *Service) UserTotalBorrow(r *http.Request, args *UserPledgeArgs, reply *UserTotalBorrowReply) error {
	ctx, end := s.span(r, "UserTotalBorrow")
	pool, err := s.registry.Pool(args.Asset)
	if err != nil {
		return end(err)
	}
	user, total, err := pool.UserTotalBorrow(ctx, args.User, args.Pledge)
	if err != nil {
		return end(err)
	}
	reply.User = json.NewBigInt(user)
	reply.Total = json.NewBigInt(total)
	return end(nil)
}

type ValueOfArgs struct {
	User   ids.ShortID `json:"user"`
	Pledge ids.ShortID `json:"pledge"`
}

// ValueOf returns the user's deposit in the pool of args.Pledge in the
// common 18-decimal unit.
func (s *Service) ValueOf(r *http.Request, args *ValueOfArgs, reply *AmountReply) error {
	ctx, end := s.span(r, "ValueOf")
	value, err := s.registry.ValueOf(ctx, args.User, args.Pledge)
	if err != nil {
		return end(err)
	}
	reply.Amount = json.NewBigInt(value)
	reply.Formatted = assets.FormatAmount(value, assets.WadDecimals)
	return end(nil)
}
