// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"context"
	"errors"
	"testing"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var errTest = errors.New("non-nil error")

func TestUpdateCommits(t *testing.T) {
	require := require.New(t)

	base := memdb.New()
	s := New(base, log.NewNoOpLogger())

	require.NoError(s.Update(context.Background(), func(db database.Database) error {
		return db.Put([]byte("k"), []byte("v"))
	}))

	v, err := base.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v"), v)
}

func TestUpdateAbortsOnError(t *testing.T) {
	require := require.New(t)

	base := memdb.New()
	s := New(base, log.NewNoOpLogger())

	err := s.Update(context.Background(), func(db database.Database) error {
		if err := db.Put([]byte("k"), []byte("v")); err != nil {
			return err
		}
		return errTest
	})
	require.ErrorIs(err, errTest)

	has, err := base.Has([]byte("k"))
	require.NoError(err)
	require.False(has)

	require.NoError(s.View(context.Background(), func(db database.Database) error {
		has, err := db.Has([]byte("k"))
		require.NoError(err)
		require.False(has)
		return nil
	}))
}

func TestCanceledContext(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New(), log.NewNoOpLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Update(ctx, func(database.Database) error {
		called = true
		return nil
	})
	require.ErrorIs(err, context.Canceled)
	require.False(called)

	err = s.View(ctx, func(database.Database) error {
		called = true
		return nil
	})
	require.ErrorIs(err, context.Canceled)
	require.False(called)
}

func TestClose(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New(), log.NewNoOpLogger())
	_, err := s.HealthCheck(context.Background())
	require.NoError(err)

	require.NoError(s.Close())
	require.NoError(s.Close())

	err = s.Update(context.Background(), func(database.Database) error { return nil })
	require.ErrorIs(err, ErrClosed)

	_, err = s.HealthCheck(context.Background())
	require.ErrorIs(err, ErrClosed)
}

func TestOpenInMemory(t *testing.T) {
	require := require.New(t)

	s, err := Open("", log.NewNoOpLogger())
	require.NoError(err)
	require.NoError(s.Close())
}

func TestConcurrentUpdatesSerialize(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New(), log.NewNoOpLogger())
	key := []byte("counter")

	var eg errgroup.Group
	for i := 0; i < 32; i++ {
		eg.Go(func() error {
			return s.Update(context.Background(), func(db database.Database) error {
				v, err := db.Get(key)
				if err != nil && !errors.Is(err, database.ErrNotFound) {
					return err
				}
				var n byte
				if len(v) == 1 {
					n = v[0]
				}
				return db.Put(key, []byte{n + 1})
			})
		})
	}
	require.NoError(eg.Wait())

	require.NoError(s.View(context.Background(), func(db database.Database) error {
		v, err := db.Get(key)
		require.NoError(err)
		require.Equal([]byte{32}, v)
		return nil
	}))
}
