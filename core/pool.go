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
	PoolStore interface {
		GetPool(ctx context.Context, assetId string) (*Pool, error)
		ListPools(ctx context.Context) ([]*Pool, error)
	}

	Pool struct {
		Id         uuid.UUID  `json:"id"`
		AssetId    string     `json:"assetId"`
		Status     PoolStatus `json:"status"`
		ShareToken ShareToken `json:"shareToken"`

		// Cash is the pool's on-hand balance of the asset, reserves included.
		Cash                 *uint256.Int `json:"cash"`
		TotalBorrows         *uint256.Int `json:"totalBorrows"`
		TotalBorrowShares    *uint256.Int `json:"totalBorrowShares"`
		TotalLiquidityShares *uint256.Int `json:"totalLiquidityShares"`
		PoolReserves         *uint256.Int `json:"poolReserves"`

		Config PoolConfig `json:"config"`

		LendAlphaMultiplier   *uint256.Int `json:"lendAlphaMultiplier"`
		BorrowAlphaMultiplier *uint256.Int `json:"borrowAlphaMultiplier"`
		// AlphaDust is reward given while one side had no shares.
		AlphaDust *uint256.Int `json:"alphaDust"`

		LastUpdateTimestamp int64 `json:"lastUpdateTimestamp"`
		CreatedAt           int64 `json:"createdAt"`
		UpdatedAt           int64 `json:"updatedAt"`
	}
)

type PoolStatus uint8

const (
	PoolStatusInactive PoolStatus = iota
	PoolStatusActive
	PoolStatusClosed
)

func (ps PoolStatus) String() string {
	switch ps {
	case PoolStatusInactive:
		return "Inactive"
	case PoolStatusActive:
		return "Active"
	case PoolStatusClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

func (ps PoolStatus) Valid() bool {
	return ps <= PoolStatusClosed
}

func PoolIdFromAsset(assetId string) uuid.UUID {
	return utils.DeriveId("pool", assetId)
}

func NewPool(clk clock.Clock, asset *Asset, config PoolConfig) *Pool {
	now := clk.Now().Unix()
	return &Pool{
		Id:                    PoolIdFromAsset(asset.AssetID),
		AssetId:               asset.AssetID,
		Status:                PoolStatusInactive,
		ShareToken:            asset.ShareToken(),
		Cash:                  wad.Zero(),
		TotalBorrows:          wad.Zero(),
		TotalBorrowShares:     wad.Zero(),
		TotalLiquidityShares:  wad.Zero(),
		PoolReserves:          wad.Zero(),
		Config:                config.Clone(),
		LendAlphaMultiplier:   wad.Zero(),
		BorrowAlphaMultiplier: wad.Zero(),
		AlphaDust:             wad.Zero(),
		LastUpdateTimestamp:   now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (p *Pool) Clone() *Pool {
	return &Pool{
		Id:                    p.Id,
		AssetId:               p.AssetId,
		Status:                p.Status,
		ShareToken:            p.ShareToken,
		Cash:                  wad.CloneOrZero(p.Cash),
		TotalBorrows:          wad.CloneOrZero(p.TotalBorrows),
		TotalBorrowShares:     wad.CloneOrZero(p.TotalBorrowShares),
		TotalLiquidityShares:  wad.CloneOrZero(p.TotalLiquidityShares),
		PoolReserves:          wad.CloneOrZero(p.PoolReserves),
		Config:                p.Config.Clone(),
		LendAlphaMultiplier:   wad.CloneOrZero(p.LendAlphaMultiplier),
		BorrowAlphaMultiplier: wad.CloneOrZero(p.BorrowAlphaMultiplier),
		AlphaDust:             wad.CloneOrZero(p.AlphaDust),
		LastUpdateTimestamp:   p.LastUpdateTimestamp,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

// AvailableLiquidity is the on-hand balance that can be lent or withdrawn.
func (p *Pool) AvailableLiquidity() *uint256.Int {
	return p.Cash.Clone()
}

// TotalLiquidity is the value backing liquidity shares: cash + borrows - reserves.
func (p *Pool) TotalLiquidity() (*uint256.Int, error) {
	total, err := wad.Add(p.Cash, p.TotalBorrows)
	if err != nil {
		return nil, err
	}
	return wad.Sub(total, p.PoolReserves)
}

func (p *Pool) UtilizationRate() (*uint256.Int, error) {
	totalLiquidity, err := p.TotalLiquidity()
	if err != nil {
		return nil, err
	}
	return Utilization(p.TotalBorrows, totalLiquidity)
}

func (p *Pool) BorrowRate() (*uint256.Int, error) {
	totalLiquidity, err := p.TotalLiquidity()
	if err != nil {
		return nil, err
	}
	return p.Config.CalculateInterestRate(p.TotalBorrows, totalLiquidity)
}

// SupplyRate is the yearly rate earned by lenders after the reserve skim.
func (p *Pool) SupplyRate(reservePercent *uint256.Int) (*uint256.Int, error) {
	borrowRate, err := p.BorrowRate()
	if err != nil {
		return nil, err
	}
	utilization, err := p.UtilizationRate()
	if err != nil {
		return nil, err
	}
	rate, err := wad.WadMul(borrowRate, utilization)
	if err != nil {
		return nil, err
	}
	return wad.WadMul(rate, wad.SubFloor(wad.WAD, reservePercent))
}

// AssertOperational rejects actions the pool status does not permit. A closed
// pool still lets users unwind their positions.
func (p *Pool) AssertOperational(action MemoActionType) error {
	switch p.Status {
	case PoolStatusActive:
		return nil
	case PoolStatusClosed:
		switch action {
		case MATDeposit:
			return ErrPoolNotDepositable
		case MATBorrow:
			return ErrPoolNotBorrowable
		case MATLiquidate:
			return ErrPoolNotLiquidatable
		}
		return nil
	}

	switch action {
	case MATDeposit:
		return ErrPoolNotDepositable
	case MATWithdraw:
		return ErrPoolNotWithdrawable
	case MATBorrow:
		return ErrPoolNotBorrowable
	case MATRepayByShare, MATRepayByAmount:
		return ErrPoolNotRepayable
	case MATLiquidate:
		return ErrPoolNotLiquidatable
	default:
		return ErrPoolInactive
	}
}

// AccrueInterest compounds TotalBorrows up to currentTimestamp and skims the
// reserve share of the interest. Calling it twice for the same timestamp is a no-op.
func (p *Pool) AccrueInterest(log Log, currentTimestamp int64, reservePercent *uint256.Int) error {
	if currentTimestamp <= p.LastUpdateTimestamp {
		return nil
	}

	totalLiquidity, err := p.TotalLiquidity()
	if err != nil {
		return err
	}
	rate, err := p.Config.CalculateInterestRate(p.TotalBorrows, totalLiquidity)
	if err != nil {
		return err
	}
	factor, err := CalculateLinearInterest(rate, p.LastUpdateTimestamp, currentTimestamp)
	if err != nil {
		return err
	}
	newTotalBorrows, err := wad.MulDivDown(p.TotalBorrows, factor, wad.WAD)
	if err != nil {
		return err
	}
	interest := new(uint256.Int).Sub(newTotalBorrows, p.TotalBorrows)
	reserve, err := wad.MulDivDown(interest, reservePercent, wad.WAD)
	if err != nil {
		return err
	}
	reserves, err := wad.Add(p.PoolReserves, reserve)
	if err != nil {
		return err
	}

	log.Debug().
		Str("asset", p.AssetId).
		Int64("timeDelta", currentTimestamp-p.LastUpdateTimestamp).
		Str("rate", rate.Dec()).
		Str("factor", factor.Dec()).
		Str("interest", interest.Dec()).
		Str("reserve", reserve.Dec()).
		Msg("accrue interest")

	p.TotalBorrows = newTotalBorrows
	p.PoolReserves = reserves
	p.LastUpdateTimestamp = currentTimestamp
	return nil
}
