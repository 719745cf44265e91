// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package assets

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/stretchr/testify/require"
)

func TestLedgerAddSub(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	l := NewLedger([]byte("d"))

	alice := []byte("alice")
	bob := []byte("bob")

	require.NoError(l.Add(db, alice, big.NewInt(100)))
	require.NoError(l.Add(db, bob, big.NewInt(50)))
	require.NoError(l.Add(db, alice, big.NewInt(5)))

	got, err := l.Get(db, alice)
	require.NoError(err)
	require.Zero(got.Cmp(big.NewInt(105)))

	total, err := l.Total(db)
	require.NoError(err)
	require.Zero(total.Cmp(big.NewInt(155)))

	err = l.Sub(db, bob, big.NewInt(51))
	require.ErrorIs(err, ErrUnderflow)

	// A failed Sub leaves the ledger untouched.
	got, err = l.Get(db, bob)
	require.NoError(err)
	require.Zero(got.Cmp(big.NewInt(50)))

	require.NoError(l.Sub(db, bob, big.NewInt(50)))
	has, err := db.Has([]byte("d\x00bob"))
	require.NoError(err)
	require.False(has)

	total, err = l.Total(db)
	require.NoError(err)
	require.Zero(total.Cmp(big.NewInt(105)))

	require.ErrorIs(l.Add(db, bob, big.NewInt(-1)), ErrNegativeAmount)
}

func TestLedgerIsolation(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	a := NewLedger([]byte("a"))
	b := NewLedger([]byte("b"))

	key := []byte("k")
	require.NoError(a.Add(db, key, big.NewInt(7)))

	got, err := b.Get(db, key)
	require.NoError(err)
	require.Zero(got.Sign())

	total, err := b.Total(db)
	require.NoError(err)
	require.Zero(total.Sign())
}

func TestLedgerTotalMatchesEntries(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	l := NewLedger([]byte("x"))
	rng := rand.New(rand.NewSource(1)) //#nosec G404

	keys := [][]byte{{1}, {2}, {3}, {4}}
	for i := 0; i < 500; i++ {
		key := keys[rng.Intn(len(keys))]
		amount := big.NewInt(rng.Int63n(1_000))
		if rng.Intn(2) == 0 {
			require.NoError(l.Add(db, key, amount))
			continue
		}
		err := l.Sub(db, key, amount)
		if err != nil {
			require.ErrorIs(err, ErrUnderflow)
		}
	}

	sum := new(big.Int)
	for _, key := range keys {
		v, err := l.Get(db, key)
		require.NoError(err)
		require.GreaterOrEqual(v.Sign(), 0)
		sum.Add(sum, v)
	}
	total, err := l.Total(db)
	require.NoError(err)
	require.Zero(total.Cmp(sum))
}

func TestPutAmount(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	key := []byte("liquidity")

	require.NoError(PutAmount(db, key, big.NewInt(9)))
	got, err := GetAmount(db, key)
	require.NoError(err)
	require.Zero(got.Cmp(big.NewInt(9)))

	require.NoError(PutAmount(db, key, new(big.Int)))
	has, err := db.Has(key)
	require.NoError(err)
	require.False(has)

	require.ErrorIs(PutAmount(db, key, big.NewInt(-1)), ErrNegativeAmount)
}
