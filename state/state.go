// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state serializes access to the ledger database. Every mutation runs
// as a single versioned transaction that is either committed whole or
// discarded.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/log"
)

var ErrClosed = errors.New("state closed")

// State owns the database. Update calls are mutually exclusive with each
// other and with View calls.
type State struct {
	mu     sync.RWMutex
	log    log.Logger
	base   database.Database
	db     *versiondb.Database
	closed bool
}

// New wraps db. The caller transfers ownership; Close closes db.
func New(db database.Database, logger log.Logger) *State {
	return &State{
		log:  logger,
		base: db,
		db:   versiondb.New(db),
	}
}

// Open returns a State over badgerdb at dir, or over memdb when dir is empty.
func Open(dir string, logger log.Logger) (*State, error) {
	if dir == "" {
		logger.Info("using in-memory database")
		return New(memdb.New(), logger), nil
	}
	db, err := badgerdb.New(
		dir,
		nil, // configBytes - use default
		"",  // namespace
		nil, // metrics
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %q: %w", dir, err)
	}
	logger.Info("opened database",
		log.String("dir", dir),
	)
	return New(db, logger), nil
}

// Update runs fn inside a transaction. If fn returns an error every write it
// made is discarded and the error is returned unchanged.
func (s *State) Update(ctx context.Context, fn func(db database.Database) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := fn(s.db); err != nil {
		s.db.Abort()
		return err
	}
	if err := s.db.Commit(); err != nil {
		s.db.Abort()
		s.log.Error("failed to commit state",
			log.Err(err),
		)
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

// View runs fn with a read-only view of committed state.
func (s *State) View(ctx context.Context, fn func(db database.Database) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return fn(s.db)
}

// HealthCheck reports whether the underlying database is usable.
func (s *State) HealthCheck(context.Context) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	if _, err := s.base.Has([]byte{}); err != nil {
		return nil, err
	}
	return map[string]string{"database": "ok"}, nil
}

func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.db.Abort()
	return s.base.Close()
}
