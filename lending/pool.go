// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/pledge/assets"
	"github.com/luxfi/pledge/token"

	safemath "github.com/luxfi/pledge/utils/math"
)

const (
	opDeposit  = "deposit"
	opWithdraw = "withdraw"
	opBorrow   = "borrow"
	opRepay    = "repay"

	// token balances are 256 bit words
	maxAmountBits = 256
)

var _ DepositReader = (*Pool)(nil)

// Pool lends out one asset. Deposits of that asset back loans to borrowers
// who pledge their deposits in any pool of the same registry.
//
// Pool holds no balances in memory. Every operation runs as one transaction
// of the registry's state, so the whole registry behaves as a single serial
// ledger.
type Pool struct {
	id        ids.ID
	address   ids.ShortID
	asset     assets.Asset
	ltv       *big.Int
	createdAt time.Time

	token    token.Token
	registry *Registry

	// depositor -> amount
	deposits *assets.Ledger
	// borrower|pledge -> debt
	borrows *assets.Ledger
	// pledge -> debt across all borrowers
	exposure      *assets.Ledger
	liquidityKey  []byte
	pledgesPrefix []byte
}

func newPool(r *Registry, tok token.Token, ltv *big.Int, createdAt time.Time) *Pool {
	asset := tok.Asset()
	id := PoolID(asset.ID)
	return &Pool{
		id:            id,
		address:       PoolAddress(id),
		asset:         asset,
		ltv:           new(big.Int).Set(ltv),
		createdAt:     createdAt,
		token:         tok,
		registry:      r,
		deposits:      assets.NewLedger(poolKey(depositsTag, asset.ID)),
		borrows:       assets.NewLedger(poolKey(borrowsTag, asset.ID)),
		exposure:      assets.NewLedger(poolKey(exposureTag, asset.ID)),
		liquidityKey:  poolKey(liquidityTag, asset.ID),
		pledgesPrefix: poolKey(pledgesTag, asset.ID),
	}
}

func (p *Pool) ID() ids.ID {
	return p.id
}

func (p *Pool) Address() ids.ShortID {
	return p.address
}

func (p *Pool) Asset() assets.Asset {
	return p.asset
}

func (p *Pool) LTV() *big.Int {
	return new(big.Int).Set(p.ltv)
}

func (p *Pool) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Pool) Token() token.Token {
	return p.token
}

// Deposit pulls amount of the pool's asset from caller, who must have
// approved the pool's address for at least amount.
func (p *Pool) Deposit(ctx context.Context, caller ids.ShortID, amount *big.Int) error {
	err := p.registry.state.Update(ctx, func(db database.Database) error {
		return p.deposit(db, caller, amount)
	})
	p.done(opDeposit, caller, amount, err)
	return err
}

func (p *Pool) deposit(db database.Database, caller ids.ShortID, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := p.token.TransferFrom(db, p.address, caller, p.address, amount); err != nil {
		if errors.Is(err, token.ErrInsufficientFunds) {
			return fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
		}
		return err
	}
	if err := p.deposits.Add(db, caller[:], amount); err != nil {
		return err
	}
	return p.addLiquidity(db, amount)
}

// Withdraw returns deposited funds to caller. If all is set amount is
// ignored and the caller's whole deposit is withdrawn. Withdrawing zero is a
// successful no-op. The amount actually withdrawn is returned.
func (p *Pool) Withdraw(ctx context.Context, caller ids.ShortID, amount *big.Int, all bool) (*big.Int, error) {
	var withdrawn *big.Int
	err := p.registry.state.Update(ctx, func(db database.Database) error {
		var err error
		withdrawn, err = p.withdraw(db, caller, amount, all)
		return err
	})
	p.done(opWithdraw, caller, withdrawn, err)
	if err != nil {
		return nil, err
	}
	return withdrawn, nil
}

func (p *Pool) withdraw(db database.Database, caller ids.ShortID, amount *big.Int, all bool) (*big.Int, error) {
	if !all && (amount == nil || amount.Sign() < 0) {
		return nil, ErrInvalidAmount
	}

	balance, err := p.deposits.Get(db, caller[:])
	if err != nil {
		return nil, err
	}
	if all {
		amount = balance
	}
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}
	if amount.Cmp(balance) > 0 {
		return nil, fmt.Errorf("%w: deposited %s, requested %s", ErrInsufficientBalance, balance, amount)
	}
	liquidity, err := p.liquidity(db)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(liquidity) > 0 {
		return nil, fmt.Errorf("%w: available %s, requested %s", ErrInsufficientLiquidity, liquidity, amount)
	}

	if err := p.deposits.Sub(db, caller[:], amount); err != nil {
		return nil, err
	}
	if err := assets.PutAmount(db, p.liquidityKey, liquidity.Sub(liquidity, amount)); err != nil {
		return nil, err
	}
	if err := p.token.Transfer(db, p.address, caller, amount); err != nil {
		return nil, err
	}
	return new(big.Int).Set(amount), nil
}

// Borrow lends amount of the pool's asset to caller against caller's deposit
// in the pool of pledgeAsset. The debt for the (caller, pledgeAsset) pair may
// not exceed the pledge's value times the pool's LTV.
func (p *Pool) Borrow(ctx context.Context, caller, pledgeAsset ids.ShortID, amount *big.Int) error {
	err := p.registry.state.Update(ctx, func(db database.Database) error {
		return p.borrow(db, caller, pledgeAsset, amount)
	})
	p.done(opBorrow, caller, amount, err,
		log.Stringer("pledge", pledgeAsset),
	)
	return err
}

func (p *Pool) borrow(db database.Database, caller, pledgeAsset ids.ShortID, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	pledge, err := p.registry.Pool(pledgeAsset)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownPledgeAsset, pledgeAsset)
	}

	key := pairKey(caller, pledgeAsset)
	outstanding, err := p.borrows.Get(db, key)
	if err != nil {
		return err
	}
	borrowable, err := p.registry.valuator.Borrowable(db, caller, pledge, p.asset, p.ltv)
	if err != nil {
		return err
	}
	headroom := safemath.SubFloor(borrowable, outstanding)
	if amount.Cmp(headroom) > 0 {
		return fmt.Errorf("%w: headroom %s, requested %s", ErrExceedsLtv, headroom, amount)
	}
	liquidity, err := p.liquidity(db)
	if err != nil {
		return err
	}
	if amount.Cmp(liquidity) > 0 {
		return fmt.Errorf("%w: available %s, requested %s", ErrInsufficientLiquidity, liquidity, amount)
	}

	if outstanding.Sign() == 0 {
		pledges, err := p.pledgesOf(db, caller)
		if err != nil {
			return err
		}
		if err := putPledges(db, p.pledgesKey(caller), append(pledges, pledgeAsset)); err != nil {
			return err
		}
	}
	if err := p.borrows.Add(db, key, amount); err != nil {
		return err
	}
	if err := p.exposure.Add(db, pledgeAsset[:], amount); err != nil {
		return err
	}
	if err := assets.PutAmount(db, p.liquidityKey, liquidity.Sub(liquidity, amount)); err != nil {
		return err
	}
	return p.token.Transfer(db, p.address, caller, amount)
}

// Repay pays down caller's debt against pledgeAsset. At most the outstanding
// debt is pulled from caller; the amount applied is returned.
func (p *Pool) Repay(ctx context.Context, caller, pledgeAsset ids.ShortID, amount *big.Int) (*big.Int, error) {
	var applied *big.Int
	err := p.registry.state.Update(ctx, func(db database.Database) error {
		var err error
		applied, err = p.repay(db, caller, pledgeAsset, amount)
		return err
	})
	p.done(opRepay, caller, applied, err,
		log.Stringer("pledge", pledgeAsset),
	)
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func (p *Pool) repay(db database.Database, caller, pledgeAsset ids.ShortID, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	key := pairKey(caller, pledgeAsset)
	outstanding, err := p.borrows.Get(db, key)
	if err != nil {
		return nil, err
	}
	if outstanding.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s against %s", ErrNoSuchDebt, caller, pledgeAsset)
	}

	applied := safemath.Min(amount, outstanding)
	if err := p.token.TransferFrom(db, p.address, caller, p.address, applied); err != nil {
		if errors.Is(err, token.ErrInsufficientFunds) {
			return nil, fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
		}
		return nil, err
	}
	if err := p.borrows.Sub(db, key, applied); err != nil {
		return nil, err
	}
	if err := p.exposure.Sub(db, pledgeAsset[:], applied); err != nil {
		return nil, err
	}
	if err := p.addLiquidity(db, applied); err != nil {
		return nil, err
	}
	if applied.Cmp(outstanding) == 0 {
		pledges, err := p.pledgesOf(db, caller)
		if err != nil {
			return nil, err
		}
		pledges = slices.DeleteFunc(pledges, func(id ids.ShortID) bool {
			return id == pledgeAsset
		})
		if err := putPledges(db, p.pledgesKey(caller), pledges); err != nil {
			return nil, err
		}
	}
	return applied, nil
}

// GetDeposit returns user's deposit, zero if they never deposited.
func (p *Pool) GetDeposit(ctx context.Context, user ids.ShortID) (*big.Int, error) {
	var amount *big.Int
	err := p.registry.state.View(ctx, func(db database.Database) error {
		var err error
		amount, err = p.DepositOf(db, user)
		return err
	})
	return amount, err
}

// DepositOf reads user's deposit through db.
func (p *Pool) DepositOf(db database.Database, user ids.ShortID) (*big.Int, error) {
	return p.deposits.Get(db, user[:])
}

// GetBorrowByPledge returns the pledge assets user currently owes against,
// in the order they were first borrowed against.
func (p *Pool) GetBorrowByPledge(ctx context.Context, user ids.ShortID) ([]ids.ShortID, error) {
	var pledges []ids.ShortID
	err := p.registry.state.View(ctx, func(db database.Database) error {
		var err error
		pledges, err = p.pledgesOf(db, user)
		return err
	})
	return pledges, err
}

// UserTotalBorrow returns user's debt against pledgeAsset and the debt of
// every borrower against pledgeAsset.
func (p *Pool) UserTotalBorrow(ctx context.Context, user, pledgeAsset ids.ShortID) (*big.Int, *big.Int, error) {
	var userBorrow, totalBorrow *big.Int
	err := p.registry.state.View(ctx, func(db database.Database) error {
		var err error
		userBorrow, err = p.borrows.Get(db, pairKey(user, pledgeAsset))
		if err != nil {
			return err
		}
		totalBorrow, err = p.exposure.Get(db, pledgeAsset[:])
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return userBorrow, totalBorrow, nil
}

// Info returns a snapshot of the pool's totals.
func (p *Pool) Info(ctx context.Context) (*PoolInfo, error) {
	info := &PoolInfo{
		ID:        p.id,
		Address:   p.address,
		Asset:     p.asset,
		LTV:       p.LTV(),
		CreatedAt: p.createdAt,
	}
	err := p.registry.state.View(ctx, func(db database.Database) error {
		var err error
		if info.TotalDeposits, err = p.deposits.Total(db); err != nil {
			return err
		}
		if info.TotalBorrows, err = p.borrows.Total(db); err != nil {
			return err
		}
		info.TotalLiquidity, err = p.liquidity(db)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (p *Pool) liquidity(db database.Database) (*big.Int, error) {
	return assets.GetAmount(db, p.liquidityKey)
}

func (p *Pool) addLiquidity(db database.Database, amount *big.Int) error {
	liquidity, err := p.liquidity(db)
	if err != nil {
		return err
	}
	return assets.PutAmount(db, p.liquidityKey, liquidity.Add(liquidity, amount))
}

func (p *Pool) pledgesKey(borrower ids.ShortID) []byte {
	return append(slices.Clone(p.pledgesPrefix), borrower[:]...)
}

func (p *Pool) pledgesOf(db database.Database, borrower ids.ShortID) ([]ids.ShortID, error) {
	return getPledges(db, p.pledgesKey(borrower))
}

func (p *Pool) done(op string, caller ids.ShortID, amount *big.Int, err error, fields ...interface{}) {
	p.registry.metrics.observe(op, err)

	fields = append(fields,
		log.Stringer("asset", p.asset.ID),
		log.Stringer("caller", caller),
	)
	if amount != nil {
		fields = append(fields, log.Stringer("amount", amount))
	}
	if err != nil {
		fields = append(fields,
			log.String("kind", Kind(err)),
			log.Err(err),
		)
		p.registry.log.Debug("rejected "+op, fields...)
		return
	}
	p.registry.log.Debug(op, fields...)
}

// checkAmount rejects amounts that can't be moved by a single transfer.
func checkAmount(amount *big.Int) error {
	switch {
	case amount == nil || amount.Sign() <= 0:
		return ErrInvalidAmount
	case amount.BitLen() > maxAmountBits:
		return fmt.Errorf("%w: exceeds %d bits", ErrInvalidAmount, maxAmountBits)
	default:
		return nil
	}
}
