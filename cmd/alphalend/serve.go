package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DomeLiquid/alphalend"
	"github.com/DomeLiquid/alphalend/api"
	"github.com/DomeLiquid/alphalend/config"
	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/metrics"
	"github.com/DomeLiquid/alphalend/store"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func migrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			_, err = openStore(cfg)
			return err
		},
	}
}

func serveCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "List the configured pools and serve the read api",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func openStore(cfg *config.Config) (*store.GormStore, error) {
	db, err := store.OpenSQLite(cfg.Database.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	s := store.NewGormStore(db)
	if err := s.Migrate(); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	return s, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}

	var (
		market core.MarketSource
		assets assetReader
	)
	if cfg.Mixin.Keystore != "" {
		client, err := newMixinClient(cfg.Mixin.Keystore)
		if err != nil {
			return err
		}
		m := core.NewMixinMarket(client)
		market, assets = m, m
	}
	oracle, err := newOracle(cfg, market)
	if err != nil {
		return err
	}

	reservePercent, err := cfg.ReservePercentWad()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	lp := alphalend.New(cfg.Owner, s, store.NewMemoryVault(),
		alphalend.WithLogger(log),
		alphalend.WithPriceOracle(oracle),
		alphalend.WithMetrics(metrics.New(registry)),
		alphalend.WithDistributor(cfg.Distributor),
		alphalend.WithAlphaAsset(cfg.AlphaAssetId),
		alphalend.WithReservePercent(reservePercent),
	)
	if err := bootstrap(ctx, lp, s, cfg, assets); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           api.NewRouter(lp, s, log, registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.HTTP.Listen).Msg("serving")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// assetReader resolves the metadata of a pool asset before it is listed.
type assetReader interface {
	ReadAsset(ctx context.Context, assetId string) (*core.Asset, error)
}

// bootstrap lists every configured pool that is not stored yet and activates
// the ones marked active. Stored pools keep their config. With a reader the
// asset metadata comes from the network instead of the config file.
func bootstrap(ctx context.Context, lp *alphalend.LendingPool, s core.Store, cfg *config.Config, assets assetReader) error {
	for _, p := range cfg.Pools {
		pool, err := s.GetPool(ctx, p.AssetId)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			poolConfig, err := p.PoolConfig()
			if err != nil {
				return err
			}
			asset := p.Asset()
			if assets != nil {
				if asset, err = assets.ReadAsset(ctx, p.AssetId); err != nil {
					return errors.Wrapf(err, "resolve asset %s", p.AssetId)
				}
			}
			if pool, err = lp.InitPool(ctx, cfg.Owner, asset, poolConfig); err != nil {
				return errors.Wrapf(err, "init pool %s", p.AssetId)
			}
		case err != nil:
			return err
		}

		if p.Active && pool.Status == core.PoolStatusInactive {
			if err := lp.SetPoolStatus(ctx, cfg.Owner, p.AssetId, core.PoolStatusActive); err != nil {
				return errors.Wrapf(err, "activate pool %s", p.AssetId)
			}
		}
	}
	return nil
}
