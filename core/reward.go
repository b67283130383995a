package core

import (
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
)

// SplitReward divides a reward portion between lenders and borrowers. Below
// the optimal utilization lenders get a growing part of the lower half, above
// it they get the lower half plus a growing part of the upper half.
func (p *Pool) SplitReward(amount *uint256.Int) (lenders, borrowers *uint256.Int, err error) {
	utilization, err := p.UtilizationRate()
	if err != nil {
		return nil, nil, err
	}
	lenders, err = SplitLendersReward(amount, utilization, p.Config.OptimalUtilization)
	if err != nil {
		return nil, nil, err
	}
	borrowers, err = wad.Sub(amount, lenders)
	if err != nil {
		return nil, nil, err
	}
	return lenders, borrowers, nil
}

func SplitLendersReward(amount, utilization, optimal *uint256.Int) (*uint256.Int, error) {
	half, err := wad.WadMul(amount, EQUILIBRIUM)
	if err != nil {
		return nil, err
	}

	if !utilization.Gt(optimal) {
		if optimal.IsZero() {
			return wad.Zero(), nil
		}
		share, err := wad.WadMul(half, utilization)
		if err != nil {
			return nil, err
		}
		return wad.WadDiv(share, optimal)
	}

	if !utilization.Lt(MAX_UTILIZATION_RATE) {
		return amount.Clone(), nil
	}

	excessUtilization := new(uint256.Int).Sub(utilization, optimal)
	maxExcessUtilization := wad.SubFloor(MAX_UTILIZATION_RATE, optimal)
	share, err := wad.WadMul(half, excessUtilization)
	if err != nil {
		return nil, err
	}
	share, err = wad.WadDiv(share, maxExcessUtilization)
	if err != nil {
		return nil, err
	}
	return wad.Add(share, half)
}

// DistributeReward splits amount and raises both per-share accumulators. A side
// without shares cannot be credited and its part is kept as dust.
func (p *Pool) DistributeReward(log Log, amount *uint256.Int) (lenders, borrowers *uint256.Int, err error) {
	lenders, borrowers, err = p.SplitReward(amount)
	if err != nil {
		return nil, nil, err
	}

	lendMultiplier, lendDust, err := raiseMultiplier(p.LendAlphaMultiplier, lenders, p.TotalLiquidityShares)
	if err != nil {
		return nil, nil, err
	}
	borrowMultiplier, borrowDust, err := raiseMultiplier(p.BorrowAlphaMultiplier, borrowers, p.TotalBorrowShares)
	if err != nil {
		return nil, nil, err
	}
	dust, err := wad.Add(wad.CloneOrZero(p.AlphaDust), lendDust)
	if err != nil {
		return nil, nil, err
	}
	dust, err = wad.Add(dust, borrowDust)
	if err != nil {
		return nil, nil, err
	}

	log.Debug().
		Str("asset", p.AssetId).
		Str("amount", amount.Dec()).
		Str("lenders", lenders.Dec()).
		Str("borrowers", borrowers.Dec()).
		Str("lendMultiplier", lendMultiplier.Dec()).
		Str("borrowMultiplier", borrowMultiplier.Dec()).
		Msg("distribute reward")

	p.LendAlphaMultiplier = lendMultiplier
	p.BorrowAlphaMultiplier = borrowMultiplier
	p.AlphaDust = dust
	return lenders, borrowers, nil
}

func raiseMultiplier(multiplier, gain, totalShares *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	multiplier = wad.CloneOrZero(multiplier)
	if totalShares.IsZero() {
		return multiplier, gain.Clone(), nil
	}
	delta, err := wad.MulDivDown(gain, ALPHA_MULTIPLIER_PRECISION, totalShares)
	if err != nil {
		return nil, nil, err
	}
	multiplier, err = wad.Add(multiplier, delta)
	if err != nil {
		return nil, nil, err
	}
	return multiplier, wad.Zero(), nil
}

// PendingAlpha returns (multiplier - last) * shares / 1e12.
func PendingAlpha(multiplier, last, shares *uint256.Int) (*uint256.Int, error) {
	delta, err := wad.Sub(wad.CloneOrZero(multiplier), wad.CloneOrZero(last))
	if err != nil {
		return nil, err
	}
	return wad.MulDivDown(delta, shares, ALPHA_MULTIPLIER_PRECISION)
}
