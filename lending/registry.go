// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lending

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/pledge/assets"
	"github.com/luxfi/pledge/state"
	"github.com/luxfi/pledge/token"
	"github.com/luxfi/pledge/utils/timer/mockable"
)

var errMissingState = errors.New("missing state")

// Config wires a Registry to its collaborators.
type Config struct {
	State  *state.State
	Tokens *token.Bank
	// Defaults to ParOracle.
	Oracle PriceOracle
	// The only identity allowed to create pools and rebind collaborators.
	Admin ids.ShortID
	// Initial collaborator handles. Handles persisted by SetRewardPool and
	// SetRouter take precedence once Load is called.
	RewardPool ids.ShortID
	Router     ids.ShortID

	Log        log.Logger
	Registerer metric.Registerer
	Clock      *mockable.Clock
}

// Registry creates and indexes at most one Pool per asset.
type Registry struct {
	state    *state.State
	tokens   *token.Bank
	valuator *Valuator
	admin    ids.ShortID
	log      log.Logger
	metrics  *metrics
	clock    *mockable.Clock

	mu         sync.RWMutex
	pools      map[ids.ShortID]*Pool
	order      []*Pool
	rewardPool ids.ShortID
	router     ids.ShortID
}

func NewRegistry(config Config) (*Registry, error) {
	if config.State == nil {
		return nil, errMissingState
	}
	if config.Tokens == nil {
		config.Tokens = token.NewBank()
	}
	if config.Log == nil {
		config.Log = log.NewNoOpLogger()
	}
	if config.Registerer == nil {
		config.Registerer = metric.NewRegistry()
	}
	if config.Clock == nil {
		config.Clock = &mockable.Clock{}
	}

	m, err := newMetrics(config.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return &Registry{
		state:      config.State,
		tokens:     config.Tokens,
		valuator:   NewValuator(config.Oracle),
		admin:      config.Admin,
		log:        config.Log,
		metrics:    m,
		clock:      config.Clock,
		pools:      make(map[ids.ShortID]*Pool),
		rewardPool: config.RewardPool,
		router:     config.Router,
	}, nil
}

// Load replaces the in-memory index with the pools and collaborator handles
// persisted in state.
func (r *Registry) Load(ctx context.Context) error {
	var (
		records    []*poolRecord
		rewardPool ids.ShortID
		router     ids.ShortID
	)
	err := r.state.View(ctx, func(db database.Database) error {
		it := db.NewIteratorWithPrefix(poolRecordPrefix)
		defer it.Release()

		for it.Next() {
			record, err := parsePoolRecord(it.Value())
			if err != nil {
				return fmt.Errorf("failed to parse pool %x: %w", it.Key(), err)
			}
			records = append(records, record)
		}
		if err := it.Error(); err != nil {
			return err
		}

		var err error
		if rewardPool, err = getHandle(db, rewardPoolKey); err != nil {
			return err
		}
		router, err = getHandle(db, routerKey)
		return err
	})
	if err != nil {
		return err
	}

	slices.SortFunc(records, comparePoolRecords)
	pools := make(map[ids.ShortID]*Pool, len(records))
	order := make([]*Pool, 0, len(records))
	for _, record := range records {
		tok, err := r.tokens.Token(record.Asset)
		if err != nil {
			return fmt.Errorf("failed to load pool: %w", err)
		}
		pool := newPool(r, tok, record.LTV, time.Unix(record.CreatedAt, 0))
		pools[record.Asset] = pool
		order = append(order, pool)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pools = pools
	r.order = order
	if rewardPool != ids.ShortEmpty {
		r.rewardPool = rewardPool
	}
	if router != ids.ShortEmpty {
		r.router = router
	}
	r.metrics.pools.Set(float64(len(order)))

	r.log.Info("loaded lending pools",
		log.Int("numPools", len(order)),
		log.Stringer("rewardPool", r.rewardPool),
		log.Stringer("router", r.router),
	)
	return nil
}

// CreatePool creates the pool lending asset with the given ltv, scaled by
// 1e18. Only the admin may create pools.
func (r *Registry) CreatePool(ctx context.Context, caller, asset ids.ShortID, ltv *big.Int) (*PoolCreated, error) {
	pool, err := r.createPool(ctx, caller, asset, ltv)
	r.metrics.observe("createPool", err)
	if err != nil {
		r.log.Debug("rejected createPool",
			log.Stringer("asset", asset),
			log.String("kind", Kind(err)),
			log.Err(err),
		)
		return nil, err
	}

	r.log.Info("created lending pool",
		log.Stringer("poolID", pool.id),
		log.Stringer("pool", pool.address),
		log.String("symbol", pool.asset.Symbol),
		log.Stringer("ltv", pool.ltv),
	)
	return &PoolCreated{
		PoolID: pool.id,
		Pool:   pool.address,
		Asset:  asset,
	}, nil
}

func (r *Registry) createPool(ctx context.Context, caller, asset ids.ShortID, ltv *big.Int) (*Pool, error) {
	if err := r.authorize(caller); err != nil {
		return nil, err
	}
	if ltv == nil || ltv.Sign() <= 0 || ltv.Cmp(assets.Wad) > 0 {
		return nil, fmt.Errorf("%w: %v not in (0, %s]", ErrInvalidLtv, ltv, assets.Wad)
	}
	if _, err := r.Pool(asset); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePool, asset)
	}
	tok, err := r.tokens.Token(asset)
	if err != nil {
		return nil, err
	}

	createdAt := r.clock.Time()
	err = r.state.Update(ctx, func(db database.Database) error {
		key := poolRecordKey(asset)
		exists, err := db.Has(key)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrDuplicatePool, asset)
		}
		seq, err := getCount(db, poolCountKey)
		if err != nil {
			return err
		}
		record := &poolRecord{
			Asset:     asset,
			LTV:       ltv,
			Seq:       seq,
			CreatedAt: createdAt.Unix(),
		}
		b, err := record.Bytes()
		if err != nil {
			return err
		}
		if err := db.Put(key, b); err != nil {
			return err
		}
		return putCount(db, poolCountKey, seq+1)
	})
	if err != nil {
		return nil, err
	}

	pool := newPool(r, tok, ltv, time.Unix(createdAt.Unix(), 0))

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pools[asset] = pool
	r.order = append(r.order, pool)
	r.metrics.pools.Set(float64(len(r.order)))
	return pool, nil
}

// SetRewardPool rebinds the reward accrual collaborator.
func (r *Registry) SetRewardPool(ctx context.Context, caller, handle ids.ShortID) error {
	return r.setHandle(ctx, caller, "setRewardPool", rewardPoolKey, handle, &r.rewardPool)
}

// SetRouter rebinds the swap collaborator.
func (r *Registry) SetRouter(ctx context.Context, caller, handle ids.ShortID) error {
	return r.setHandle(ctx, caller, "setRouter", routerKey, handle, &r.router)
}

func (r *Registry) setHandle(
	ctx context.Context,
	caller ids.ShortID,
	op string,
	key []byte,
	handle ids.ShortID,
	field *ids.ShortID,
) error {
	err := r.authorize(caller)
	if err == nil {
		err = r.state.Update(ctx, func(db database.Database) error {
			return db.Put(key, handle[:])
		})
	}
	r.metrics.observe(op, err)
	if err != nil {
		r.log.Debug("rejected "+op,
			log.Stringer("caller", caller),
			log.String("kind", Kind(err)),
			log.Err(err),
		)
		return err
	}

	r.mu.Lock()
	*field = handle
	r.mu.Unlock()

	r.log.Info("rebound collaborator",
		log.String("op", op),
		log.Stringer("handle", handle),
	)
	return nil
}

func (r *Registry) authorize(caller ids.ShortID) error {
	if r.admin == ids.ShortEmpty || caller != r.admin {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	return nil
}

// Admin returns the privileged identity.
func (r *Registry) Admin() ids.ShortID {
	return r.admin
}

func (r *Registry) RewardPool() ids.ShortID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rewardPool
}

func (r *Registry) Router() ids.ShortID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.router
}

// Pool returns the pool lending asset.
func (r *Registry) Pool(asset ids.ShortID) (*Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pool, ok := r.pools[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, asset)
	}
	return pool, nil
}

// Pools returns every pool in creation order.
func (r *Registry) Pools() []*Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Tokens returns the token directory pools draw from.
func (r *Registry) Tokens() *token.Bank {
	return r.tokens
}

// ValueOf returns user's deposit in the pool of pledgeAsset in the common
// 18-decimal unit.
func (r *Registry) ValueOf(ctx context.Context, user, pledgeAsset ids.ShortID) (*big.Int, error) {
	pledge, err := r.Pool(pledgeAsset)
	if err != nil {
		return nil, err
	}
	var value *big.Int
	err = r.state.View(ctx, func(db database.Database) error {
		var err error
		value, err = r.valuator.ValueOf(db, user, pledge)
		return err
	})
	return value, err
}
