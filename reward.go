package alphalend

import (
	"context"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
)

// GiveReward is called by the distributor to spread amount of Alpha over the
// lenders and borrowers of a pool. The Alpha is pulled from the distributor
// when an alpha asset is configured.
func (lp *LendingPool) GiveReward(ctx context.Context, caller, assetId string, amount *uint256.Int) (lenders, borrowers *uint256.Int, err error) {
	lp.log.Debug().Str("caller", caller).Str("asset", assetId).Str("amount", dec(amount)).Msg("give reward")
	err = lp.transact(ctx, "Give Reward", func(w *workspace) error {
		lenders, borrowers, err = w.giveReward(caller, assetId, amount)
		return err
	})
	if err == nil {
		lp.metrics.ObserveReward(assetId, wad.ToDecimal(lenders).InexactFloat64(), wad.ToDecimal(borrowers).InexactFloat64())
	}
	return lenders, borrowers, err
}

func (w *workspace) giveReward(caller, assetId string, amount *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if w.lp.distributor == "" {
		return nil, nil, core.ErrDistributorNotSet
	}
	if caller != w.lp.distributor {
		return nil, nil, core.ErrNotDistributor
	}
	if err := requirePositive(amount); err != nil {
		return nil, nil, err
	}
	pool, err := w.pool(assetId)
	if err != nil {
		return nil, nil, err
	}
	lenders, borrowers, err := pool.DistributeReward(w.lp.log, amount)
	if err != nil {
		return nil, nil, err
	}
	pool.UpdatedAt = w.now

	if w.lp.alphaAssetId != "" {
		w.pull(caller, w.lp.alphaAssetId, amount)
	}
	detail := core.AmountDetail(amount, nil).
		With("lenders", lenders.Dec()).
		With("borrowers", borrowers.Dec())
	w.emit(core.EventRewardGiven, caller, assetId, detail)
	return lenders, borrowers, nil
}

// ClaimAlpha settles the user's reward on every pool and pays out the total.
// The Alpha goes to the alpha receiver when one is set, otherwise it is sent
// to the user from the vault.
func (lp *LendingPool) ClaimAlpha(ctx context.Context, userId string) (claimed *uint256.Int, err error) {
	lp.log.Debug().Str("user", userId).Msg("claim alpha")
	err = lp.transact(ctx, core.MATClaimAlpha.String(), func(w *workspace) error {
		claimed, err = w.claimAlpha(userId)
		return err
	})
	if err == nil {
		lp.metrics.ObserveClaim(wad.ToDecimal(claimed).InexactFloat64())
	}
	return claimed, err
}

func (w *workspace) claimAlpha(userId string) (*uint256.Int, error) {
	if w.lp.alphaReceiver == nil && w.lp.alphaAssetId == "" {
		return nil, core.ErrAlphaAssetNotSet
	}
	accounts, err := w.userAccounts(userId)
	if err != nil {
		return nil, err
	}

	total := wad.Zero()
	for _, pa := range accounts {
		claimed, err := pa.ClaimAlpha(w.lp.log)
		if err != nil {
			return nil, err
		}
		if total, err = wad.Add(total, claimed); err != nil {
			return nil, err
		}
	}
	if total.IsZero() {
		return total, nil
	}

	if w.lp.alphaReceiver != nil {
		w.receiveAlpha(userId, total)
	} else {
		w.push(userId, w.lp.alphaAssetId, total)
	}
	w.emit(core.EventAlphaClaimed, userId, w.lp.alphaAssetId, core.AmountDetail(total, nil))
	return total, nil
}
