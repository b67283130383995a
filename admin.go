package alphalend

import (
	"context"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// InitPool lists an asset. The pool starts inactive.
func (lp *LendingPool) InitPool(ctx context.Context, caller string, asset *core.Asset, config core.PoolConfig) (pool *core.Pool, err error) {
	lp.log.Debug().Str("caller", caller).Str("asset", asset.AssetID).Str("symbol", asset.Symbol).Msg("init pool")
	err = lp.transact(ctx, "Init Pool", func(w *workspace) error {
		if err := lp.checkOwner(caller); err != nil {
			return err
		}
		if err := config.Validate(); err != nil {
			return err
		}
		if _, err := w.pool(asset.AssetID); err == nil {
			return core.ErrPoolExists
		} else if !errors.Is(err, core.ErrPoolNotFound) {
			return err
		}

		pool = core.NewPool(lp.clk, asset, config)
		w.addPool(pool)
		w.assets = append(w.assets, asset)
		detail := core.EventDetail{}.
			With("shareName", pool.ShareToken.Name).
			With("shareSymbol", pool.ShareToken.Symbol)
		w.emit(core.EventPoolInitialized, caller, asset.AssetID, detail)
		return nil
	})
	return pool, err
}

func (lp *LendingPool) SetPoolStatus(ctx context.Context, caller, assetId string, status core.PoolStatus) error {
	lp.log.Debug().Str("caller", caller).Str("asset", assetId).Stringer("status", status).Msg("set pool status")
	return lp.transact(ctx, "Set Pool Status", func(w *workspace) error {
		if err := lp.checkOwner(caller); err != nil {
			return err
		}
		if !status.Valid() {
			return errors.Wrapf(core.ErrInvalidPoolStatus, "status %d", status)
		}
		pool, err := w.pool(assetId)
		if err != nil {
			return err
		}
		previous := pool.Status
		pool.Status = status
		pool.UpdatedAt = w.now
		detail := core.EventDetail{}.
			With("previous", previous.String()).
			With("status", status.String())
		w.emit(core.EventPoolStatusUpdated, caller, assetId, detail)
		return nil
	})
}

func (lp *LendingPool) SetPoolConfig(ctx context.Context, caller, assetId string, config core.PoolConfig) error {
	lp.log.Debug().Str("caller", caller).Str("asset", assetId).Msg("set pool config")
	return lp.transact(ctx, "Set Pool Config", func(w *workspace) error {
		if err := lp.checkOwner(caller); err != nil {
			return err
		}
		if err := config.Validate(); err != nil {
			return err
		}
		pool, err := w.pool(assetId)
		if err != nil {
			return errors.Wrap(err, "can't set the pool config")
		}
		// interest up to now was accrued with the old curve when the pool loaded
		pool.Config = config.Clone()
		pool.UpdatedAt = w.now
		detail := core.EventDetail{}.
			With("baseBorrowRate", config.BaseBorrowRate.Dec()).
			With("slope1", config.Slope1.Dec()).
			With("slope2", config.Slope2.Dec()).
			With("optimalUtilization", config.OptimalUtilization.Dec()).
			With("collateralPercent", config.CollateralPercent.Dec()).
			With("liquidationBonus", config.LiquidationBonus.Dec())
		w.emit(core.EventPoolConfigUpdated, caller, assetId, detail)
		return nil
	})
}

// SetReservePercent changes the share of interest kept as reserves. Pools
// are not touched; each accrues with the new value from its next load.
func (lp *LendingPool) SetReservePercent(ctx context.Context, caller string, percent *uint256.Int) error {
	lp.log.Debug().Str("caller", caller).Str("percent", dec(percent)).Msg("set reserve percent")
	return lp.transact(ctx, "Set Reserve Percent", func(w *workspace) error {
		if err := lp.checkOwner(caller); err != nil {
			return err
		}
		if percent == nil || percent.Gt(wad.WAD) {
			return core.ErrInvalidReservePercent
		}
		detail := core.EventDetail{}.
			With("previous", lp.reservePercent.Dec()).
			With("percent", percent.Dec())
		w.emit(core.EventReservePercentUpdated, caller, "", detail)
		w.onCommit(func() {
			lp.reservePercent = percent.Clone()
		})
		return nil
	})
}

// WithdrawReserve sends amount of a pool's reserves to the owner.
func (lp *LendingPool) WithdrawReserve(ctx context.Context, caller, assetId string, amount *uint256.Int) error {
	lp.log.Debug().Str("caller", caller).Str("asset", assetId).Str("amount", dec(amount)).Msg("withdraw reserve")
	return lp.transact(ctx, "Withdraw Reserve", func(w *workspace) error {
		if err := lp.checkOwner(caller); err != nil {
			return err
		}
		if err := requirePositive(amount); err != nil {
			return err
		}
		pool, err := w.pool(assetId)
		if err != nil {
			return err
		}
		if amount.Gt(pool.PoolReserves) {
			return errors.Wrapf(core.ErrReserveExceeded, "withdraw %s, reserves %s", amount.Dec(), pool.PoolReserves.Dec())
		}
		if amount.Gt(pool.Cash) {
			return errors.Wrapf(core.ErrInsufficientLiquidity, "withdraw %s, available %s", amount.Dec(), pool.Cash.Dec())
		}
		pool.PoolReserves = new(uint256.Int).Sub(pool.PoolReserves, amount)
		pool.Cash = new(uint256.Int).Sub(pool.Cash, amount)
		pool.UpdatedAt = w.now
		w.push(caller, assetId, amount)
		w.emit(core.EventReserveWithdrawn, caller, assetId, core.AmountDetail(amount, nil))
		return nil
	})
}

func (lp *LendingPool) SetPriceOracle(caller string, oracle core.PriceOracle) error {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if err := lp.checkOwner(caller); err != nil {
		return err
	}
	lp.oracle = oracle
	lp.log.Info().Str("caller", caller).Bool("set", oracle != nil).Msg("set price oracle")
	return nil
}

func (lp *LendingPool) SetDistributor(caller, distributor string) error {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if err := lp.checkOwner(caller); err != nil {
		return err
	}
	lp.distributor = distributor
	lp.log.Info().Str("caller", caller).Str("distributor", distributor).Msg("set distributor")
	return nil
}

func (lp *LendingPool) SetAlphaReceiver(caller string, receiver core.AlphaReceiver) error {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if err := lp.checkOwner(caller); err != nil {
		return err
	}
	lp.alphaReceiver = receiver
	lp.log.Info().Str("caller", caller).Bool("set", receiver != nil).Msg("set alpha receiver")
	return nil
}
