// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/pledge/assets"
)

var (
	_ Token = (*ERC20)(nil)

	balancePrefix   = []byte("bal")
	allowancePrefix = []byte("alw")
	supplyKey       = []byte("supply")
)

// ERC20 keeps balances and allowances for one asset in its own namespace of
// the database. Values are stored as 32-byte big-endian words.
type ERC20 struct {
	asset  assets.Asset
	prefix []byte
}

// NewERC20 returns a token for asset. The namespace is derived from the asset
// ID so two tokens never collide.
func NewERC20(asset assets.Asset) *ERC20 {
	prefix := make([]byte, 0, 4+ids.ShortIDLen)
	prefix = append(prefix, "tok/"...)
	prefix = append(prefix, asset.ID[:]...)
	return &ERC20{
		asset:  asset,
		prefix: prefix,
	}
}

func (t *ERC20) Asset() assets.Asset {
	return t.asset
}

func (t *ERC20) TotalSupply(db database.Database) (*big.Int, error) {
	v, err := getWord(t.db(db), supplyKey)
	if err != nil {
		return nil, err
	}
	return v.ToBig(), nil
}

func (t *ERC20) BalanceOf(db database.Database, owner ids.ShortID) (*big.Int, error) {
	v, err := getWord(t.db(db), balanceKey(owner))
	if err != nil {
		return nil, err
	}
	return v.ToBig(), nil
}

func (t *ERC20) Allowance(db database.Database, owner, spender ids.ShortID) (*big.Int, error) {
	v, err := getWord(t.db(db), allowanceKey(owner, spender))
	if err != nil {
		return nil, err
	}
	return v.ToBig(), nil
}

// Approve sets spender's allowance over owner's balance, replacing any
// previous value.
func (t *ERC20) Approve(db database.Database, owner, spender ids.ShortID, amount *big.Int) error {
	v, err := toWord(amount)
	if err != nil {
		return err
	}
	return putWord(t.db(db), allowanceKey(owner, spender), v)
}

func (t *ERC20) Transfer(db database.Database, from, to ids.ShortID, amount *big.Int) error {
	v, err := toWord(amount)
	if err != nil {
		return err
	}
	return t.move(t.db(db), from, to, v)
}

func (t *ERC20) TransferFrom(db database.Database, spender, owner, to ids.ShortID, amount *big.Int) error {
	v, err := toWord(amount)
	if err != nil {
		return err
	}

	tdb := t.db(db)
	key := allowanceKey(owner, spender)
	allowance, err := getWord(tdb, key)
	if err != nil {
		return err
	}
	if allowance.Lt(v) {
		return fmt.Errorf("%w: %s allowed %s, need %s",
			ErrInsufficientAllowance, spender, allowance.Dec(), v.Dec(),
		)
	}

	// Check the balance before touching the allowance so a failed transfer
	// leaves both unchanged even without an enclosing transaction.
	balance, err := getWord(tdb, balanceKey(owner))
	if err != nil {
		return err
	}
	if balance.Lt(v) {
		return fmt.Errorf("%w: %s has %s, need %s",
			ErrInsufficientFunds, owner, balance.Dec(), v.Dec(),
		)
	}
	if err := putWord(tdb, key, new(uint256.Int).Sub(allowance, v)); err != nil {
		return err
	}
	return t.move(tdb, owner, to, v)
}

func (t *ERC20) Mint(db database.Database, to ids.ShortID, amount *big.Int) error {
	v, err := toWord(amount)
	if err != nil {
		return err
	}

	tdb := t.db(db)
	supply, err := getWord(tdb, supplyKey)
	if err != nil {
		return err
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(supply, v)
	if overflow {
		return ErrOverflow
	}
	balance, err := getWord(tdb, balanceKey(to))
	if err != nil {
		return err
	}
	if err := putWord(tdb, supplyKey, newSupply); err != nil {
		return err
	}
	return putWord(tdb, balanceKey(to), new(uint256.Int).Add(balance, v))
}

func (t *ERC20) move(db database.Database, from, to ids.ShortID, v *uint256.Int) error {
	fromKey := balanceKey(from)
	fromBalance, err := getWord(db, fromKey)
	if err != nil {
		return err
	}
	if fromBalance.Lt(v) {
		return fmt.Errorf("%w: %s has %s, need %s",
			ErrInsufficientFunds, from, fromBalance.Dec(), v.Dec(),
		)
	}
	if from == to {
		return nil
	}

	toKey := balanceKey(to)
	toBalance, err := getWord(db, toKey)
	if err != nil {
		return err
	}
	// Bounded by total supply, which Mint keeps below 2^256.
	newTo := new(uint256.Int).Add(toBalance, v)
	if err := putWord(db, fromKey, new(uint256.Int).Sub(fromBalance, v)); err != nil {
		return err
	}
	return putWord(db, toKey, newTo)
}

func (t *ERC20) db(db database.Database) database.Database {
	return prefixdb.New(t.prefix, db)
}

func balanceKey(owner ids.ShortID) []byte {
	key := make([]byte, 0, len(balancePrefix)+ids.ShortIDLen)
	key = append(key, balancePrefix...)
	return append(key, owner[:]...)
}

func allowanceKey(owner, spender ids.ShortID) []byte {
	key := make([]byte, 0, len(allowancePrefix)+2*ids.ShortIDLen)
	key = append(key, allowancePrefix...)
	key = append(key, owner[:]...)
	return append(key, spender[:]...)
}

func toWord(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrOverflow
	}
	return v, nil
}

func getWord(db database.Database, key []byte) (*uint256.Int, error) {
	b, err := db.Get(key)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return new(uint256.Int), nil
	case err != nil:
		return nil, err
	default:
		return new(uint256.Int).SetBytes(b), nil
	}
}

func putWord(db database.Database, key []byte, v *uint256.Int) error {
	if v.IsZero() {
		return db.Delete(key)
	}
	b := v.Bytes32()
	return db.Put(key, b[:])
}
