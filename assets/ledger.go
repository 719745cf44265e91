// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package assets

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/database"
)

var (
	ErrUnderflow      = errors.New("ledger entry underflow")
	ErrNegativeAmount = errors.New("negative ledger amount")

	entryTag = []byte{0x00}
	totalTag = []byte{0x01}
)

// Ledger is a set of non-negative amounts keyed by arbitrary bytes, stored
// under a common prefix, together with their running total. Every mutation
// updates the entry and the total in the same database, so
// Total == sum of all entries whenever the database is committed atomically.
//
// Entries that reach zero are deleted.
type Ledger struct {
	entryPrefix []byte
	totalKey    []byte
}

// NewLedger returns a ledger rooted at prefix. Ledgers with distinct prefixes
// never share keys as long as no prefix is a prefix of another.
func NewLedger(prefix []byte) *Ledger {
	return &Ledger{
		entryPrefix: concat(prefix, entryTag),
		totalKey:    concat(prefix, totalTag),
	}
}

// Get returns the amount stored for key, zero if absent.
func (l *Ledger) Get(db database.Database, key []byte) (*big.Int, error) {
	return getAmount(db, concat(l.entryPrefix, key))
}

// Total returns the sum of all entries.
func (l *Ledger) Total(db database.Database) (*big.Int, error) {
	return getAmount(db, l.totalKey)
}

// Add increases the entry for key and the total by amount.
func (l *Ledger) Add(db database.Database, key []byte, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	entryKey := concat(l.entryPrefix, key)
	entry, err := getAmount(db, entryKey)
	if err != nil {
		return err
	}
	total, err := getAmount(db, l.totalKey)
	if err != nil {
		return err
	}
	if err := putAmount(db, entryKey, entry.Add(entry, amount)); err != nil {
		return err
	}
	return putAmount(db, l.totalKey, total.Add(total, amount))
}

// Sub decreases the entry for key and the total by amount. It fails with
// ErrUnderflow, leaving the ledger untouched, if the entry holds less.
func (l *Ledger) Sub(db database.Database, key []byte, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	entryKey := concat(l.entryPrefix, key)
	entry, err := getAmount(db, entryKey)
	if err != nil {
		return err
	}
	if entry.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrUnderflow, entry, amount)
	}
	total, err := getAmount(db, l.totalKey)
	if err != nil {
		return err
	}
	if total.Cmp(amount) < 0 {
		return fmt.Errorf("%w: total %s below entry", ErrUnderflow, total)
	}
	if err := putAmount(db, entryKey, entry.Sub(entry, amount)); err != nil {
		return err
	}
	return putAmount(db, l.totalKey, total.Sub(total, amount))
}

// GetAmount reads a single amount stored at key, zero if absent.
func GetAmount(db database.Database, key []byte) (*big.Int, error) {
	return getAmount(db, key)
}

// PutAmount stores a single non-negative amount at key. Zero deletes it.
func PutAmount(db database.Database, key []byte, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	return putAmount(db, key, amount)
}

func getAmount(db database.Database, key []byte) (*big.Int, error) {
	b, err := db.Get(key)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return new(big.Int), nil
	case err != nil:
		return nil, err
	default:
		return new(big.Int).SetBytes(b), nil
	}
}

func putAmount(db database.Database, key []byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return db.Delete(key)
	}
	return db.Put(key, amount.Bytes())
}

func concat(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]byte, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
