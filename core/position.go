package core

import (
	"context"

	"github.com/DomeLiquid/alphalend/utils"
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/holiman/uint256"
)

type (
	PositionStore interface {
		// FindPosition returns gorm.ErrRecordNotFound when the user never touched the pool.
		FindPosition(ctx context.Context, userId, assetId string) (*UserPoolPosition, error)
		ListPositions(ctx context.Context, userId string) ([]*UserPoolPosition, error)
	}

	UserPoolPosition struct {
		Id      uuid.UUID `json:"id"`
		UserId  string    `json:"userId"`
		AssetId string    `json:"assetId"`

		LiquidityShares *uint256.Int `json:"liquidityShares"`
		BorrowShares    *uint256.Int `json:"borrowShares"`
		UseAsCollateral bool         `json:"useAsCollateral"`
		// Initialized is set by the first deposit.
		Initialized bool `json:"initialized"`

		LastLendAlphaMultiplier   *uint256.Int `json:"lastLendAlphaMultiplier"`
		LastBorrowAlphaMultiplier *uint256.Int `json:"lastBorrowAlphaMultiplier"`
		AlphaClaimable            *uint256.Int `json:"alphaClaimable"`

		CreatedAt int64 `json:"createdAt"`
		UpdatedAt int64 `json:"updatedAt"`
	}
)

func PositionId(userId, assetId string) uuid.UUID {
	return utils.DeriveId("position", userId, assetId)
}

// NewUserPoolPosition starts a position at the pool's current multipliers so
// reward given before the user joined is never credited to them.
func NewUserPoolPosition(clk clock.Clock, userId string, pool *Pool) *UserPoolPosition {
	now := clk.Now().Unix()
	return &UserPoolPosition{
		Id:                        PositionId(userId, pool.AssetId),
		UserId:                    userId,
		AssetId:                   pool.AssetId,
		LiquidityShares:           wad.Zero(),
		BorrowShares:              wad.Zero(),
		LastLendAlphaMultiplier:   wad.CloneOrZero(pool.LendAlphaMultiplier),
		LastBorrowAlphaMultiplier: wad.CloneOrZero(pool.BorrowAlphaMultiplier),
		AlphaClaimable:            wad.Zero(),
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

func (p *UserPoolPosition) Clone() *UserPoolPosition {
	return &UserPoolPosition{
		Id:                        p.Id,
		UserId:                    p.UserId,
		AssetId:                   p.AssetId,
		LiquidityShares:           wad.CloneOrZero(p.LiquidityShares),
		BorrowShares:              wad.CloneOrZero(p.BorrowShares),
		UseAsCollateral:           p.UseAsCollateral,
		Initialized:               p.Initialized,
		LastLendAlphaMultiplier:   wad.CloneOrZero(p.LastLendAlphaMultiplier),
		LastBorrowAlphaMultiplier: wad.CloneOrZero(p.LastBorrowAlphaMultiplier),
		AlphaClaimable:            wad.CloneOrZero(p.AlphaClaimable),
		CreatedAt:                 p.CreatedAt,
		UpdatedAt:                 p.UpdatedAt,
	}
}

func (p *UserPoolPosition) HasLiquidity() bool {
	return !p.LiquidityShares.IsZero()
}

func (p *UserPoolPosition) HasDebt() bool {
	return !p.BorrowShares.IsZero()
}

// IsEmpty reports a position holding neither shares nor unclaimed reward.
func (p *UserPoolPosition) IsEmpty() bool {
	return !p.HasLiquidity() && !p.HasDebt() && p.AlphaClaimable.IsZero()
}

func (p *UserPoolPosition) Touch(clk clock.Clock) {
	p.UpdatedAt = clk.Now().Unix()
}
