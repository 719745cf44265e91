// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/pledge/api"
	"github.com/luxfi/pledge/api/health"
	"github.com/luxfi/pledge/api/metrics"
	"github.com/luxfi/pledge/api/server"
	"github.com/luxfi/pledge/assets"
	"github.com/luxfi/pledge/config"
	"github.com/luxfi/pledge/lending"
	"github.com/luxfi/pledge/state"
	"github.com/luxfi/pledge/token"
)

const (
	tracerName = "github.com/luxfi/pledge"

	lendingNamespace = "pledge"
	apiNamespace     = "api"
	healthNamespace  = "health"
)

var allocatedPrefix = []byte("genesis/allocated/")

type node struct {
	config     config.Config
	log        log.Logger
	gatherer   metrics.MultiGatherer
	apiMetrics metric.Registry
	state      *state.State
	registry   *lending.Registry
	health     *health.Health
}

// newNode opens the ledger and applies the configured genesis. Pools are
// created and allocations minted only the first time an asset is seen, so
// restarting against the same database is idempotent.
func newNode(ctx context.Context, cfg config.Config, logger log.Logger) (*node, error) {
	st, err := state.Open(cfg.DBDir, logger)
	if err != nil {
		return nil, err
	}
	n, err := initNode(ctx, cfg, logger, st)
	if err != nil {
		return nil, errors.Join(err, st.Close())
	}
	return n, nil
}

func initNode(ctx context.Context, cfg config.Config, logger log.Logger, st *state.State) (*node, error) {
	admin, err := config.ParseAddress(cfg.Admin)
	if err != nil {
		return nil, err
	}
	rewardPool, err := config.ParseAddress(cfg.RewardPool)
	if err != nil {
		return nil, err
	}
	router, err := config.ParseAddress(cfg.Router)
	if err != nil {
		return nil, err
	}

	bank := token.NewBank()
	for _, asset := range cfg.Assets {
		if err := bank.Register(token.NewERC20(asset.Asset())); err != nil {
			return nil, err
		}
	}

	gatherer := metrics.NewPrefixGatherer()
	lendingMetrics := metric.NewRegistry()
	apiMetrics := metric.NewRegistry()
	healthMetrics := metric.NewRegistry()
	for prefix, reg := range map[string]metric.Registry{
		lendingNamespace: lendingMetrics,
		apiNamespace:     apiMetrics,
		healthNamespace:  healthMetrics,
	} {
		if err := gatherer.Register(prefix, reg); err != nil {
			return nil, err
		}
	}

	registry, err := lending.NewRegistry(lending.Config{
		State:      st,
		Tokens:     bank,
		Admin:      admin,
		RewardPool: rewardPool,
		Router:     router,
		Log:        logger,
		Registerer: lendingMetrics,
	})
	if err != nil {
		return nil, err
	}
	if err := registry.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load pools: %w", err)
	}

	h, err := health.New(logger, healthMetrics)
	if err != nil {
		return nil, err
	}
	if err := h.Register("database", st); err != nil {
		return nil, err
	}

	n := &node{
		config:     cfg,
		log:        logger,
		gatherer:   gatherer,
		apiMetrics: apiMetrics,
		state:      st,
		registry:   registry,
		health:     h,
	}
	if err := n.applyGenesis(ctx, admin); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *node) applyGenesis(ctx context.Context, admin ids.ShortID) error {
	for _, asset := range n.config.Assets {
		a := asset.Asset()
		if asset.LTVBps > 0 {
			if pool, err := n.registry.Pool(a.ID); err == nil {
				if pool.LTV().Cmp(asset.LTV()) != 0 {
					n.log.Warn("configured ltv differs from existing pool",
						log.String("symbol", a.Symbol),
						log.Stringer("configured", asset.LTV()),
						log.Stringer("existing", pool.LTV()),
					)
				}
			} else if _, err := n.registry.CreatePool(ctx, admin, a.ID, asset.LTV()); err != nil {
				return fmt.Errorf("failed to create %s pool: %w", a.Symbol, err)
			}
		}
		if err := n.allocate(ctx, asset); err != nil {
			return fmt.Errorf("failed to allocate %s: %w", a.Symbol, err)
		}
	}
	return nil
}

func (n *node) allocate(ctx context.Context, asset config.Asset) error {
	if len(asset.Allocations) == 0 {
		return nil
	}
	a := asset.Asset()
	tok, err := n.registry.Tokens().Token(a.ID)
	if err != nil {
		return err
	}

	key := append(append([]byte{}, allocatedPrefix...), a.ID[:]...)
	minted := false
	err = n.state.Update(ctx, func(db database.Database) error {
		done, err := db.Has(key)
		if err != nil || done {
			return err
		}
		for _, alloc := range asset.Allocations {
			to, err := config.ParseAddress(alloc.Address)
			if err != nil {
				return err
			}
			amount, err := assets.ParseAmount(alloc.Amount, a.Decimals)
			if err != nil {
				return err
			}
			if err := tok.Mint(db, to, amount); err != nil {
				return err
			}
		}
		minted = true
		return db.Put(key, []byte{1})
	})
	if err == nil && minted {
		n.log.Info("minted genesis allocations",
			log.String("symbol", a.Symbol),
			log.Int("numAllocations", len(asset.Allocations)),
		)
	}
	return err
}

// run serves the API until ctx is cancelled, then closes the ledger.
func (n *node) run(ctx context.Context) error {
	addr := net.JoinHostPort(n.config.HTTPHost, strconv.Itoa(int(n.config.HTTPPort)))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Join(err, n.state.Close())
	}

	srv, err := n.newServer(listener)
	if err != nil {
		return errors.Join(err, listener.Close(), n.state.Close())
	}

	n.log.Info("serving API",
		log.String("address", listener.Addr().String()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Dispatch)
	g.Go(func() error {
		<-ctx.Done()
		n.log.Info("shutting down")
		return srv.Shutdown()
	})
	err = g.Wait()
	return errors.Join(err, n.state.Close())
}

func (n *node) newServer(listener net.Listener) (*server.Server, error) {
	srv, err := server.New(
		n.log,
		listener,
		n.config.AllowedOrigins,
		n.config.ShutdownTimeout,
		otel.Tracer(tracerName),
		n.apiMetrics,
		server.HTTPConfig{
			ReadHeaderTimeout: n.config.ReadHeaderTimeout,
		},
	)
	if err != nil {
		return nil, err
	}

	service := api.NewService(n.log, otel.Tracer(tracerName), n.state, n.registry)
	rpcHandler, err := api.NewHandler(service)
	if err != nil {
		return nil, err
	}
	if err := srv.AddRoute(rpcHandler, api.ServiceName); err != nil {
		return nil, err
	}
	if err := srv.AddRoute(n.health.Handler(), "health"); err != nil {
		return nil, err
	}
	if err := srv.AddRoute(api.NewMetricsHandler(n.gatherer), "metrics"); err != nil {
		return nil, err
	}
	return srv, nil
}
