package core

import (
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

type LiquidateResult struct {
	Liquidator        string `json:"liquidator"`
	Debtor            string `json:"debtor"`
	DebtAssetId       string `json:"debtAssetId"`
	CollateralAssetId string `json:"collateralAssetId"`

	RepaidShares     *uint256.Int `json:"repaidShares"`
	RepaidAmount     *uint256.Int `json:"repaidAmount"`
	CollateralAmount *uint256.Int `json:"collateralAmount"`
	CollateralShares *uint256.Int `json:"collateralShares"`
}

// Liquidation moves collateral shares of an unhealthy debtor to the liquidator
// in exchange for repaying part of the debtor's debt.
type Liquidation struct {
	// DebtorDebt and DebtorCollateral are the debtor's accounts on the debt
	// and collateral pools. When both pools are the same they share pointers.
	DebtorDebt       *PoolAccount
	DebtorCollateral *PoolAccount

	LiquidatorDebt       *PoolAccount
	LiquidatorCollateral *PoolAccount
}

// CheckLiquidationPools verifies the pool statuses that gate a liquidation.
func CheckLiquidationPools(debtPool, collateralPool *Pool) error {
	if debtPool.Status != PoolStatusActive {
		return ErrPoolNotLiquidatable
	}
	if collateralPool.Status == PoolStatusInactive {
		return errors.Wrap(ErrPoolInactive, "collateral pool")
	}
	return nil
}

// CalculateCollateralAmount prices the repaid debt in collateral and adds the bonus:
// floor(floor(debtPrice * purchase * bonus / WAD) / collateralPrice).
func CalculateCollateralAmount(debtPrice, collateralPrice, purchaseAmount, liquidationBonus *uint256.Int) (*uint256.Int, error) {
	value, overflow := new(uint256.Int).MulOverflow(debtPrice, purchaseAmount)
	if overflow {
		return nil, wad.ErrOverflow
	}
	value, err := wad.MulDivDown(value, liquidationBonus, wad.WAD)
	if err != nil {
		return nil, err
	}
	if collateralPrice.IsZero() {
		return nil, wad.ErrDivisionByZero
	}
	return new(uint256.Int).Div(value, collateralPrice), nil
}

// Execute checks the debtor side preconditions and applies the seizure. The
// caller has already checked the pools and that the debtor is unhealthy.
func (l *Liquidation) Execute(log Log, shares, debtPrice, collateralPrice *uint256.Int) (*LiquidateResult, error) {
	debtor := l.DebtorDebt.Position
	debtorCollateral := l.DebtorCollateral.Position
	collateralPool := l.DebtorCollateral.Pool
	debtPool := l.DebtorDebt.Pool

	if !debtorCollateral.UseAsCollateral {
		return nil, ErrCollateralNotEnabled
	}
	if collateralPool.Config.CollateralPercent.IsZero() {
		return nil, ErrPoolNotCollateral
	}
	if !debtor.HasDebt() {
		return nil, ErrNoDebt
	}
	if shares.IsZero() {
		return nil, ErrZeroShares
	}

	for _, pa := range []*PoolAccount{l.DebtorDebt, l.LiquidatorDebt} {
		if err := pa.SettleBorrowAlpha(log); err != nil {
			return nil, err
		}
	}
	for _, pa := range []*PoolAccount{l.DebtorCollateral, l.LiquidatorCollateral} {
		if err := pa.SettleLendAlpha(log); err != nil {
			return nil, err
		}
	}

	repaidShares := wad.Min(shares, debtor.BorrowShares)
	purchaseAmount, err := debtPool.CalculateRoundUpBorrowAmount(repaidShares)
	if err != nil {
		return nil, err
	}
	collateralAmount, err := CalculateCollateralAmount(debtPrice, collateralPrice, purchaseAmount, debtPool.Config.LiquidationBonus)
	if err != nil {
		return nil, err
	}
	collateralShares, err := collateralPool.CalculateRoundUpLiquidityShareAmount(collateralAmount)
	if err != nil {
		return nil, err
	}
	if collateralShares.Gt(debtorCollateral.LiquidityShares) {
		return nil, errors.Wrapf(ErrInsufficientCollateral, "seize %s shares, debtor holds %s", collateralShares.Dec(), debtorCollateral.LiquidityShares.Dec())
	}

	if err := l.DebtorDebt.burnDebt(purchaseAmount, repaidShares); err != nil {
		return nil, err
	}
	if debtPool.Cash, err = wad.Add(debtPool.Cash, purchaseAmount); err != nil {
		return nil, err
	}
	if debtorCollateral.LiquidityShares, err = wad.Sub(debtorCollateral.LiquidityShares, collateralShares); err != nil {
		return nil, err
	}
	liquidator := l.LiquidatorCollateral.Position
	if liquidator.LiquidityShares, err = wad.Add(liquidator.LiquidityShares, collateralShares); err != nil {
		return nil, err
	}
	for _, pa := range []*PoolAccount{l.DebtorDebt, l.DebtorCollateral, l.LiquidatorCollateral} {
		pa.touch()
	}

	result := &LiquidateResult{
		Liquidator:        liquidator.UserId,
		Debtor:            debtor.UserId,
		DebtAssetId:       debtPool.AssetId,
		CollateralAssetId: collateralPool.AssetId,
		RepaidShares:      repaidShares,
		RepaidAmount:      purchaseAmount,
		CollateralAmount:  collateralAmount,
		CollateralShares:  collateralShares,
	}

	log.Info().
		Str("liquidator", result.Liquidator).
		Str("debtor", result.Debtor).
		Str("debtAsset", result.DebtAssetId).
		Str("collateralAsset", result.CollateralAssetId).
		Str("repaidShares", repaidShares.Dec()).
		Str("repaidAmount", purchaseAmount.Dec()).
		Str("collateralAmount", collateralAmount.Dec()).
		Str("collateralShares", collateralShares.Dec()).
		Msg("liquidate")
	return result, nil
}
