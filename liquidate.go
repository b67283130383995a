package alphalend

import (
	"context"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Liquidate repays up to shares of the debtor's debt on the debt pool and
// hands the liquidator the debtor's collateral shares plus the bonus.
func (lp *LendingPool) Liquidate(ctx context.Context, liquidator, debtor, debtAssetId string, shares *uint256.Int, collateralAssetId string) (result *core.LiquidateResult, err error) {
	lp.log.Debug().
		Str("liquidator", liquidator).
		Str("debtor", debtor).
		Str("debtAsset", debtAssetId).
		Str("collateralAsset", collateralAssetId).
		Str("shares", dec(shares)).
		Msg("liquidate")
	err = lp.transact(ctx, core.MATLiquidate.String(), func(w *workspace) error {
		result, err = w.liquidate(liquidator, debtor, debtAssetId, shares, collateralAssetId)
		return err
	})
	if err == nil {
		lp.metrics.ObserveLiquidation(debtAssetId)
	}
	return result, err
}

func (w *workspace) liquidate(liquidator, debtor, debtAssetId string, shares *uint256.Int, collateralAssetId string) (*core.LiquidateResult, error) {
	if liquidator == debtor {
		return nil, core.ErrSelfLiquidation
	}
	if err := requirePositive(shares); err != nil {
		return nil, core.ErrZeroShares
	}

	debtPool, err := w.pool(debtAssetId)
	if err != nil {
		return nil, err
	}
	collateralPool, err := w.pool(collateralAssetId)
	if err != nil {
		return nil, err
	}
	if err := core.CheckLiquidationPools(debtPool, collateralPool); err != nil {
		return nil, err
	}

	engine, err := w.healthEngine(debtor)
	if err != nil {
		return nil, err
	}
	healthy, err := engine.IsAccountHealthy()
	if err != nil {
		return nil, err
	}
	if healthy {
		return nil, core.ErrAccountHealthy
	}

	l := &core.Liquidation{}
	if l.DebtorDebt, err = w.account(debtor, debtAssetId); err != nil {
		return nil, err
	}
	if l.DebtorCollateral, err = w.account(debtor, collateralAssetId); err != nil {
		return nil, err
	}
	if l.LiquidatorDebt, err = w.account(liquidator, debtAssetId); err != nil {
		return nil, err
	}
	if l.LiquidatorCollateral, err = w.account(liquidator, collateralAssetId); err != nil {
		return nil, err
	}

	if w.lp.oracle == nil {
		return nil, core.ErrPriceOracleNotSet
	}
	debtPrice, err := w.lp.oracle.GetAssetPrice(w.ctx, debtAssetId)
	if err != nil {
		return nil, errors.Wrap(err, "debt price")
	}
	collateralPrice, err := w.lp.oracle.GetAssetPrice(w.ctx, collateralAssetId)
	if err != nil {
		return nil, errors.Wrap(err, "collateral price")
	}

	result, err := l.Execute(w.lp.log, shares, debtPrice, collateralPrice)
	if err != nil {
		return nil, err
	}

	w.pull(liquidator, debtAssetId, result.RepaidAmount)
	detail := core.AmountDetail(result.RepaidAmount, result.RepaidShares).
		With("collateralAsset", collateralAssetId).
		With("collateralAmount", result.CollateralAmount.Dec()).
		With("collateralShares", result.CollateralShares.Dec())
	detail.Counterpart = liquidator
	w.emit(core.EventLiquidate, debtor, debtAssetId, detail)
	return result, nil
}
