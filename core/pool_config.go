package core

import (
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// PoolConfig holds the WAD scaled parameters of a pool. It is swapped as a
// whole by the owner and never mutated in place.
type PoolConfig struct {
	BaseBorrowRate     *uint256.Int `json:"baseBorrowRate"`
	Slope1             *uint256.Int `json:"slope1"`
	Slope2             *uint256.Int `json:"slope2"`
	OptimalUtilization *uint256.Int `json:"optimalUtilization"`
	ExcessUtilization  *uint256.Int `json:"excessUtilization"`
	CollateralPercent  *uint256.Int `json:"collateralPercent"`
	LiquidationBonus   *uint256.Int `json:"liquidationBonus"`
}

// NewPoolConfig builds the default curve pivoting at 80% utilization.
func NewPoolConfig(baseBorrowRate, slope1, slope2, collateralPercent, liquidationBonus *uint256.Int) PoolConfig {
	return NewPoolConfigWithOptimal(DEFAULT_OPTIMAL_UTILIZATION, baseBorrowRate, slope1, slope2, collateralPercent, liquidationBonus)
}

// NewPoolConfigWithOptimal builds a curve with an asset specific pivot, e.g. 40% for stablecoins.
func NewPoolConfigWithOptimal(optimalUtilization, baseBorrowRate, slope1, slope2, collateralPercent, liquidationBonus *uint256.Int) PoolConfig {
	return PoolConfig{
		BaseBorrowRate:     baseBorrowRate.Clone(),
		Slope1:             slope1.Clone(),
		Slope2:             slope2.Clone(),
		OptimalUtilization: optimalUtilization.Clone(),
		ExcessUtilization:  wad.SubFloor(wad.WAD, optimalUtilization),
		CollateralPercent:  collateralPercent.Clone(),
		LiquidationBonus:   liquidationBonus.Clone(),
	}
}

func (c PoolConfig) Clone() PoolConfig {
	return PoolConfig{
		BaseBorrowRate:     wad.CloneOrZero(c.BaseBorrowRate),
		Slope1:             wad.CloneOrZero(c.Slope1),
		Slope2:             wad.CloneOrZero(c.Slope2),
		OptimalUtilization: wad.CloneOrZero(c.OptimalUtilization),
		ExcessUtilization:  wad.CloneOrZero(c.ExcessUtilization),
		CollateralPercent:  wad.CloneOrZero(c.CollateralPercent),
		LiquidationBonus:   wad.CloneOrZero(c.LiquidationBonus),
	}
}

func (c PoolConfig) Validate() error {
	for _, v := range []*uint256.Int{c.BaseBorrowRate, c.Slope1, c.Slope2, c.OptimalUtilization, c.ExcessUtilization, c.CollateralPercent, c.LiquidationBonus} {
		if v == nil {
			return errors.Wrap(ErrInvalidPoolConfig, "missing parameter")
		}
	}
	if c.OptimalUtilization.IsZero() || c.OptimalUtilization.Gt(wad.WAD) {
		return errors.Wrap(ErrInvalidPoolConfig, "optimal utilization must be within (0, 1]")
	}
	if c.ExcessUtilization.Gt(wad.WAD) {
		return errors.Wrap(ErrInvalidPoolConfig, "excess utilization must not exceed 1")
	}
	if c.CollateralPercent.Gt(wad.WAD) {
		return errors.Wrap(ErrInvalidPoolConfig, "collateral percent must not exceed 1")
	}
	if c.LiquidationBonus.Lt(wad.WAD) {
		return errors.Wrap(ErrInvalidPoolConfig, "liquidation bonus must be at least 1")
	}
	return nil
}

// Utilization is totalBorrows/totalLiquidity rounded down, zero for an empty pool.
func Utilization(totalBorrows, totalLiquidity *uint256.Int) (*uint256.Int, error) {
	if totalLiquidity.IsZero() {
		return wad.Zero(), nil
	}
	return wad.MulDivDown(totalBorrows, wad.WAD, totalLiquidity)
}

// CalculateInterestRate returns the yearly borrow rate for the given pool totals.
func (c PoolConfig) CalculateInterestRate(totalBorrows, totalLiquidity *uint256.Int) (*uint256.Int, error) {
	utilization, err := Utilization(totalBorrows, totalLiquidity)
	if err != nil {
		return nil, err
	}
	return c.InterestRateCurve(utilization)
}

func (c PoolConfig) InterestRateCurve(utilization *uint256.Int) (*uint256.Int, error) {
	if utilization.IsZero() {
		return c.BaseBorrowRate.Clone(), nil
	}

	if !utilization.Gt(c.OptimalUtilization) {
		// base + utilization * slope1 / optimal
		slope, err := wad.MulDivDown(utilization, c.Slope1, c.OptimalUtilization)
		if err != nil {
			return nil, err
		}
		return wad.Add(c.BaseBorrowRate, slope)
	}

	// base + slope1 + (utilization - optimal) / excess * slope2
	excessRatio, err := wad.MulDivDown(new(uint256.Int).Sub(utilization, c.OptimalUtilization), wad.WAD, c.ExcessUtilization)
	if err != nil {
		return nil, err
	}
	slope, err := wad.MulDivDown(excessRatio, c.Slope2, wad.WAD)
	if err != nil {
		return nil, err
	}
	rate, err := wad.Add(c.BaseBorrowRate, c.Slope1)
	if err != nil {
		return nil, err
	}
	return wad.Add(rate, slope)
}

// CalculateLinearInterest returns WAD + rate*dt/year with the product truncated to WAD first.
func CalculateLinearInterest(rate *uint256.Int, fromTimestamp, toTimestamp int64) (*uint256.Int, error) {
	if toTimestamp <= fromTimestamp {
		return wad.WAD.Clone(), nil
	}
	timeDelta := uint256.NewInt(uint64(toTimestamp - fromTimestamp))

	rateTimesDelta, err := wad.MulDivDown(rate, timeDelta, wad.WAD)
	if err != nil {
		return nil, err
	}
	perPeriod, err := wad.MulDivDown(rateTimesDelta, wad.WAD, uint256.NewInt(SECONDS_PER_YEAR))
	if err != nil {
		return nil, err
	}
	return wad.Add(perPeriod, wad.WAD)
}
