package alphalend

import (
	"context"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var ONE = decimal.NewFromInt(1)

type (
	PoolData struct {
		AssetId    string          `json:"assetId"`
		Status     core.PoolStatus `json:"status"`
		ShareToken core.ShareToken `json:"shareToken"`

		TotalLiquidity       *uint256.Int `json:"totalLiquidity"`
		AvailableLiquidity   *uint256.Int `json:"availableLiquidity"`
		TotalBorrows         *uint256.Int `json:"totalBorrows"`
		TotalLiquidityShares *uint256.Int `json:"totalLiquidityShares"`
		TotalBorrowShares    *uint256.Int `json:"totalBorrowShares"`
		PoolReserves         *uint256.Int `json:"poolReserves"`
		Utilization          *uint256.Int `json:"utilization"`
		BorrowRate           *uint256.Int `json:"borrowRate"`
		SupplyRate           *uint256.Int `json:"supplyRate"`

		BorrowApy decimal.Decimal `json:"borrowApy"`
		SupplyApy decimal.Decimal `json:"supplyApy"`

		LastUpdateTimestamp int64 `json:"lastUpdateTimestamp"`
	}

	UserPoolData struct {
		UserId  string `json:"userId"`
		AssetId string `json:"assetId"`

		CompoundedLiquidityBalance *uint256.Int `json:"compoundedLiquidityBalance"`
		CompoundedBorrowBalance    *uint256.Int `json:"compoundedBorrowBalance"`
		LiquidityShares            *uint256.Int `json:"liquidityShares"`
		BorrowShares               *uint256.Int `json:"borrowShares"`
		UseAsCollateral            bool         `json:"useAsCollateral"`
		PendingAlpha               *uint256.Int `json:"pendingAlpha"`
	}

	AccountSummary struct {
		UserId          string          `json:"userId"`
		CollateralValue *uint256.Int    `json:"collateralValue"`
		BorrowValue     *uint256.Int    `json:"borrowValue"`
		Healthy         bool            `json:"healthy"`
		NetApy          decimal.Decimal `json:"netApy"`
	}
)

// AprToApy compounds a yearly rate hourly.
func AprToApy(apr decimal.Decimal) decimal.Decimal {
	hoursPerYear := decimal.NewFromFloat(core.HOURS_PER_YEAR)
	if hoursPerYear.IsZero() {
		return decimal.Zero
	}
	return (ONE.Add(apr.Div(hoursPerYear))).Pow(hoursPerYear).Sub(ONE).Round(8)
}

// GetPoolData reports a pool as of now, interest included.
func (lp *LendingPool) GetPoolData(ctx context.Context, assetId string) (data *PoolData, err error) {
	err = lp.view(ctx, func(w *workspace) error {
		pool, err := w.pool(assetId)
		if err != nil {
			return err
		}
		data, err = poolData(pool, lp.reservePercent)
		return err
	})
	return data, err
}

func (lp *LendingPool) ListPoolData(ctx context.Context) ([]*PoolData, error) {
	var list []*PoolData
	err := lp.view(ctx, func(w *workspace) error {
		pools, err := lp.store.ListPools(ctx)
		if err != nil {
			return err
		}
		for _, stored := range pools {
			pool, err := w.pool(stored.AssetId)
			if err != nil {
				return err
			}
			data, err := poolData(pool, lp.reservePercent)
			if err != nil {
				return err
			}
			list = append(list, data)
		}
		return nil
	})
	return list, err
}

func poolData(pool *core.Pool, reservePercent *uint256.Int) (*PoolData, error) {
	totalLiquidity, err := pool.TotalLiquidity()
	if err != nil {
		return nil, err
	}
	utilization, err := pool.UtilizationRate()
	if err != nil {
		return nil, err
	}
	borrowRate, err := pool.BorrowRate()
	if err != nil {
		return nil, err
	}
	supplyRate, err := pool.SupplyRate(reservePercent)
	if err != nil {
		return nil, err
	}
	return &PoolData{
		AssetId:              pool.AssetId,
		Status:               pool.Status,
		ShareToken:           pool.ShareToken,
		TotalLiquidity:       totalLiquidity,
		AvailableLiquidity:   pool.AvailableLiquidity(),
		TotalBorrows:         pool.TotalBorrows.Clone(),
		TotalLiquidityShares: pool.TotalLiquidityShares.Clone(),
		TotalBorrowShares:    pool.TotalBorrowShares.Clone(),
		PoolReserves:         pool.PoolReserves.Clone(),
		Utilization:          utilization,
		BorrowRate:           borrowRate,
		SupplyRate:           supplyRate,
		BorrowApy:            AprToApy(wad.ToDecimal(borrowRate)),
		SupplyApy:            AprToApy(wad.ToDecimal(supplyRate)),
		LastUpdateTimestamp:  pool.LastUpdateTimestamp,
	}, nil
}

// GetUserPoolData reports the user's balances on a pool. A user who never
// touched the pool gets zero balances and UseAsCollateral false.
func (lp *LendingPool) GetUserPoolData(ctx context.Context, userId, assetId string) (data *UserPoolData, err error) {
	err = lp.view(ctx, func(w *workspace) error {
		pa, err := w.account(userId, assetId)
		if err != nil {
			return err
		}
		data, err = userPoolData(pa)
		return err
	})
	return data, err
}

func userPoolData(pa *core.PoolAccount) (*UserPoolData, error) {
	pool, position := pa.Pool, pa.Position
	liquidity, err := pool.CalculateLiquidityAmount(position.LiquidityShares)
	if err != nil {
		return nil, err
	}
	borrow := wad.Zero()
	if position.HasDebt() {
		if borrow, err = pool.CalculateRoundUpBorrowAmount(position.BorrowShares); err != nil {
			return nil, err
		}
	}
	lendPending, err := core.PendingAlpha(pool.LendAlphaMultiplier, position.LastLendAlphaMultiplier, position.LiquidityShares)
	if err != nil {
		return nil, err
	}
	borrowPending, err := core.PendingAlpha(pool.BorrowAlphaMultiplier, position.LastBorrowAlphaMultiplier, position.BorrowShares)
	if err != nil {
		return nil, err
	}
	pending, err := wad.Add(lendPending, borrowPending)
	if err != nil {
		return nil, err
	}
	if pending, err = wad.Add(pending, wad.CloneOrZero(position.AlphaClaimable)); err != nil {
		return nil, err
	}
	return &UserPoolData{
		UserId:                     position.UserId,
		AssetId:                    pool.AssetId,
		CompoundedLiquidityBalance: liquidity,
		CompoundedBorrowBalance:    borrow,
		LiquidityShares:            position.LiquidityShares.Clone(),
		BorrowShares:               position.BorrowShares.Clone(),
		UseAsCollateral:            position.UseAsCollateral,
		PendingAlpha:               pending,
	}, nil
}

func (lp *LendingPool) IsAccountHealthy(ctx context.Context, userId string) (healthy bool, err error) {
	err = lp.view(ctx, func(w *workspace) error {
		engine, err := w.healthEngine(userId)
		if err != nil {
			return err
		}
		healthy, err = engine.IsAccountHealthy()
		return err
	})
	return healthy, err
}

// GetAccountSummary values the user's positions and weighs the supply and
// borrow APY of each pool by that value.
func (lp *LendingPool) GetAccountSummary(ctx context.Context, userId string) (summary *AccountSummary, err error) {
	err = lp.view(ctx, func(w *workspace) error {
		engine, err := w.healthEngine(userId)
		if err != nil {
			return err
		}
		health, err := engine.GetAccountHealth()
		if err != nil {
			return err
		}
		netApy, err := computeNetApy(engine, lp.reservePercent)
		if err != nil {
			return err
		}
		summary = &AccountSummary{
			UserId:          userId,
			CollateralValue: health.CollateralValue,
			BorrowValue:     health.BorrowValue,
			Healthy:         health.Healthy(),
			NetApy:          netApy,
		}
		return nil
	})
	return summary, err
}

func computeNetApy(engine *core.HealthEngine, reservePercent *uint256.Int) (decimal.Decimal, error) {
	totalSupplied := decimal.Zero
	weightedSupply := decimal.Zero
	weightedBorrow := decimal.Zero

	for _, a := range engine.Accounts {
		data, err := poolData(a.Pool, reservePercent)
		if err != nil {
			return decimal.Zero, err
		}
		user, err := userPoolData(a.PoolAccount)
		if err != nil {
			return decimal.Zero, err
		}
		price := wad.ToDecimal(a.Price)
		supplied := wad.ToDecimal(user.CompoundedLiquidityBalance).Mul(price)
		borrowed := wad.ToDecimal(user.CompoundedBorrowBalance).Mul(price)

		totalSupplied = totalSupplied.Add(supplied)
		weightedSupply = weightedSupply.Add(supplied.Mul(data.SupplyApy))
		weightedBorrow = weightedBorrow.Add(borrowed.Mul(data.BorrowApy))
	}

	if totalSupplied.IsZero() {
		return decimal.Zero, nil
	}
	return weightedSupply.Sub(weightedBorrow).Div(totalSupplied).Round(8), nil
}
