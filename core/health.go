package core

import (
	"context"

	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

type AccountHealth struct {
	CollateralValue *uint256.Int `json:"collateralValue"`
	BorrowValue     *uint256.Int `json:"borrowValue"`
}

// Healthy reports borrow value <= collateral value.
func (h AccountHealth) Healthy() bool {
	return !h.BorrowValue.Gt(h.CollateralValue)
}

type PoolAccountWithPrice struct {
	*PoolAccount
	Price *uint256.Int
}

// HealthEngine values all positions of a single user.
type HealthEngine struct {
	UserId   string
	Accounts []*PoolAccountWithPrice
}

func NewHealthEngine(ctx context.Context, oracle PriceOracle, userId string, accounts []*PoolAccount) (*HealthEngine, error) {
	withPrices := make([]*PoolAccountWithPrice, 0, len(accounts))
	for _, pa := range accounts {
		if !pa.Position.HasDebt() && !(pa.Position.HasLiquidity() && pa.Position.UseAsCollateral) {
			continue
		}
		if oracle == nil {
			return nil, ErrPriceOracleNotSet
		}
		price, err := oracle.GetAssetPrice(ctx, pa.Pool.AssetId)
		if err != nil {
			return nil, err
		}
		withPrices = append(withPrices, &PoolAccountWithPrice{PoolAccount: pa, Price: price})
	}
	return &HealthEngine{
		UserId:   userId,
		Accounts: withPrices,
	}, nil
}

func (h *HealthEngine) GetAccountHealth() (*AccountHealth, error) {
	collateralValue := wad.Zero()
	borrowValue := wad.Zero()

	for _, a := range h.Accounts {
		pool, position := a.Pool, a.Position

		if position.UseAsCollateral && !pool.Config.CollateralPercent.IsZero() && position.HasLiquidity() {
			amount, err := pool.CalculateLiquidityAmount(position.LiquidityShares)
			if err != nil {
				return nil, err
			}
			value, err := wad.WadMul(amount, a.Price)
			if err != nil {
				return nil, err
			}
			value, err = wad.WadMul(value, pool.Config.CollateralPercent)
			if err != nil {
				return nil, err
			}
			if collateralValue, err = wad.Add(collateralValue, value); err != nil {
				return nil, err
			}
		}

		if position.HasDebt() {
			amount, err := pool.CalculateRoundUpBorrowAmount(position.BorrowShares)
			if err != nil {
				return nil, err
			}
			value, err := wad.WadMul(amount, a.Price)
			if err != nil {
				return nil, err
			}
			if borrowValue, err = wad.Add(borrowValue, value); err != nil {
				return nil, err
			}
		}
	}

	return &AccountHealth{
		CollateralValue: collateralValue,
		BorrowValue:     borrowValue,
	}, nil
}

func (h *HealthEngine) IsAccountHealthy() (bool, error) {
	health, err := h.GetAccountHealth()
	if err != nil {
		return false, err
	}
	return health.Healthy(), nil
}

func (h *HealthEngine) CheckAccountHealth() error {
	health, err := h.GetAccountHealth()
	if err != nil {
		return err
	}
	if !health.Healthy() {
		return errors.Wrapf(ErrAccountNotHealthy, "borrow %s > collateral %s", health.BorrowValue.Dec(), health.CollateralValue.Dec())
	}
	return nil
}
