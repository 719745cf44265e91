// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"cmp"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/pledge/utils/wrappers"
)

const (
	recordVersion = 0

	// A borrower can pledge at most every pool once.
	maxPledgeListSize = 1 << 16
	maxRecordSize     = 1 << 10
)

var (
	errUnknownVersion = errors.New("unknown record version")
	errTrailingBytes  = errors.New("trailing bytes in record")
	errPledgeListFull = errors.New("pledge list full")

	poolRecordPrefix = []byte("lend/pool/")
	poolCountKey     = []byte("lend/npools")
	rewardPoolKey    = []byte("lend/cfg/reward")
	routerKey        = []byte("lend/cfg/router")

	depositsTag  = byte('d')
	borrowsTag   = byte('b')
	exposureTag  = byte('t')
	liquidityTag = byte('l')
	pledgesTag   = byte('o')
)

// poolRecord is the persisted identity of a pool. Balances live in the
// pool's own ledgers.
type poolRecord struct {
	Asset     ids.ShortID
	LTV       *big.Int
	Seq       uint32
	CreatedAt int64
}

func (r *poolRecord) Bytes() ([]byte, error) {
	p := wrappers.Packer{MaxSize: maxRecordSize}
	p.PackShort(recordVersion)
	p.PackShortID(r.Asset)
	p.PackBigInt(r.LTV)
	p.PackInt(r.Seq)
	p.PackLong(uint64(r.CreatedAt))
	return p.Bytes, p.Err
}

func parsePoolRecord(b []byte) (*poolRecord, error) {
	p := wrappers.Packer{Bytes: b}
	version := p.UnpackShort()
	if p.Errored() {
		return nil, p.Err
	}
	if version != recordVersion {
		return nil, fmt.Errorf("%w: %d", errUnknownVersion, version)
	}
	r := &poolRecord{
		Asset:     p.UnpackShortID(),
		LTV:       p.UnpackBigInt(),
		Seq:       p.UnpackInt(),
		CreatedAt: int64(p.UnpackLong()),
	}
	if p.Errored() {
		return nil, p.Err
	}
	if p.Offset != len(b) {
		return nil, errTrailingBytes
	}
	return r, nil
}

// comparePoolRecords orders records by creation.
func comparePoolRecords(a, b *poolRecord) int {
	return cmp.Compare(a.Seq, b.Seq)
}

func poolRecordKey(asset ids.ShortID) []byte {
	return append(slices.Clone(poolRecordPrefix), asset[:]...)
}

// poolKey returns the root of one of a pool's namespaces. All pool keys have
// the same length up to the asset so no namespace prefixes another.
func poolKey(tag byte, asset ids.ShortID) []byte {
	key := make([]byte, 0, 7+ids.ShortIDLen)
	key = append(key, "lend/"...)
	key = append(key, tag, '/')
	return append(key, asset[:]...)
}

func pairKey(borrower, pledge ids.ShortID) []byte {
	key := make([]byte, 0, 2*ids.ShortIDLen)
	key = append(key, borrower[:]...)
	return append(key, pledge[:]...)
}

func getPledges(db database.Database, key []byte) ([]ids.ShortID, error) {
	b, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p := wrappers.Packer{Bytes: b}
	n := p.UnpackInt()
	if n > maxPledgeListSize {
		return nil, errPledgeListFull
	}
	pledges := make([]ids.ShortID, 0, n)
	for i := uint32(0); i < n && !p.Errored(); i++ {
		pledges = append(pledges, p.UnpackShortID())
	}
	if p.Errored() {
		return nil, p.Err
	}
	if p.Offset != len(b) {
		return nil, errTrailingBytes
	}
	return pledges, nil
}

func putPledges(db database.Database, key []byte, pledges []ids.ShortID) error {
	if len(pledges) == 0 {
		return db.Delete(key)
	}
	if len(pledges) > maxPledgeListSize {
		return errPledgeListFull
	}
	p := wrappers.Packer{MaxSize: wrappers.IntLen + len(pledges)*ids.ShortIDLen}
	p.PackInt(uint32(len(pledges)))
	for _, pledge := range pledges {
		p.PackShortID(pledge)
	}
	if p.Errored() {
		return p.Err
	}
	return db.Put(key, p.Bytes)
}

func getHandle(db database.Database, key []byte) (ids.ShortID, error) {
	b, err := db.Get(key)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ids.ShortEmpty, nil
	case err != nil:
		return ids.ShortEmpty, err
	default:
		return ids.ToShortID(b)
	}
}

func getCount(db database.Database, key []byte) (uint32, error) {
	b, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	p := wrappers.Packer{Bytes: b}
	n := p.UnpackInt()
	return n, p.Err
}

func putCount(db database.Database, key []byte, n uint32) error {
	p := wrappers.Packer{MaxSize: wrappers.IntLen}
	p.PackInt(n)
	return db.Put(key, p.Bytes)
}
