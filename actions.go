package alphalend

import (
	"context"
	"strconv"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Deposit moves amount of the asset into its pool and returns the liquidity
// shares minted to the user.
func (lp *LendingPool) Deposit(ctx context.Context, userId, assetId string, amount *uint256.Int) (shares *uint256.Int, err error) {
	lp.log.Debug().Str("user", userId).Str("asset", assetId).Str("amount", dec(amount)).Msg("deposit")
	err = lp.transact(ctx, core.MATDeposit.String(), func(w *workspace) error {
		shares, err = w.deposit(userId, assetId, amount)
		return err
	})
	return shares, err
}

// Withdraw burns up to shares liquidity shares and sends the released amount
// to the user. It returns the amount and the shares actually burned.
func (lp *LendingPool) Withdraw(ctx context.Context, userId, assetId string, shares *uint256.Int) (amount, burned *uint256.Int, err error) {
	lp.log.Debug().Str("user", userId).Str("asset", assetId).Str("shares", dec(shares)).Msg("withdraw")
	err = lp.transact(ctx, core.MATWithdraw.String(), func(w *workspace) error {
		amount, burned, err = w.withdraw(userId, assetId, shares)
		return err
	})
	return amount, burned, err
}

func (lp *LendingPool) Borrow(ctx context.Context, userId, assetId string, amount *uint256.Int) (shares *uint256.Int, err error) {
	lp.log.Debug().Str("user", userId).Str("asset", assetId).Str("amount", dec(amount)).Msg("borrow")
	err = lp.transact(ctx, core.MATBorrow.String(), func(w *workspace) error {
		shares, err = w.borrow(userId, assetId, amount)
		return err
	})
	return shares, err
}

func (lp *LendingPool) RepayByShare(ctx context.Context, userId, assetId string, shares *uint256.Int) (paid, burned *uint256.Int, err error) {
	lp.log.Debug().Str("user", userId).Str("asset", assetId).Str("shares", dec(shares)).Msg("repay by share")
	err = lp.transact(ctx, core.MATRepayByShare.String(), func(w *workspace) error {
		paid, burned, err = w.repayByShare(userId, assetId, shares)
		return err
	})
	return paid, burned, err
}

func (lp *LendingPool) RepayByAmount(ctx context.Context, userId, assetId string, amount *uint256.Int) (paid, burned *uint256.Int, err error) {
	lp.log.Debug().Str("user", userId).Str("asset", assetId).Str("amount", dec(amount)).Msg("repay by amount")
	err = lp.transact(ctx, core.MATRepayByAmount.String(), func(w *workspace) error {
		paid, burned, err = w.repayByAmount(userId, assetId, amount)
		return err
	})
	return paid, burned, err
}

func (lp *LendingPool) SetUseAsCollateral(ctx context.Context, userId, assetId string, enabled bool) error {
	lp.log.Debug().Str("user", userId).Str("asset", assetId).Bool("enabled", enabled).Msg("set collateral")
	return lp.transact(ctx, core.MATSetCollateral.String(), func(w *workspace) error {
		return w.setUseAsCollateral(userId, assetId, enabled)
	})
}

func (w *workspace) deposit(userId, assetId string, amount *uint256.Int) (*uint256.Int, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	pa, err := w.account(userId, assetId)
	if err != nil {
		return nil, err
	}
	shares, err := pa.Deposit(w.lp.log, amount)
	if err != nil {
		return nil, err
	}
	w.pull(userId, assetId, amount)
	w.emit(core.EventDeposit, userId, assetId, core.AmountDetail(amount, shares))
	return shares, nil
}

func (w *workspace) withdraw(userId, assetId string, shares *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if err := requirePositive(shares); err != nil {
		return nil, nil, core.ErrZeroShares
	}
	pa, err := w.account(userId, assetId)
	if err != nil {
		return nil, nil, err
	}
	// only liquidity counted as collateral can leave the account short
	counted := pa.Position.UseAsCollateral && !pa.Pool.Config.CollateralPercent.IsZero()
	amount, burned, err := pa.Withdraw(w.lp.log, shares)
	if err != nil {
		return nil, nil, err
	}
	if counted {
		if err := w.checkHealth(userId); err != nil {
			return nil, nil, errors.Wrap(err, "can't withdraw")
		}
	}
	w.push(userId, assetId, amount)
	w.emit(core.EventWithdraw, userId, assetId, core.AmountDetail(amount, burned))
	return amount, burned, nil
}

func (w *workspace) borrow(userId, assetId string, amount *uint256.Int) (*uint256.Int, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	pa, err := w.account(userId, assetId)
	if err != nil {
		return nil, err
	}
	shares, err := pa.Borrow(w.lp.log, amount)
	if err != nil {
		return nil, err
	}
	if err := w.checkHealth(userId); err != nil {
		return nil, errors.Wrap(err, "can't borrow")
	}
	w.push(userId, assetId, amount)
	w.emit(core.EventBorrow, userId, assetId, core.AmountDetail(amount, shares))
	return shares, nil
}

func (w *workspace) repayByShare(userId, assetId string, shares *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if err := requirePositive(shares); err != nil {
		return nil, nil, core.ErrZeroShares
	}
	pa, err := w.account(userId, assetId)
	if err != nil {
		return nil, nil, err
	}
	paid, burned, err := pa.RepayByShare(w.lp.log, shares)
	if err != nil {
		return nil, nil, err
	}
	w.repaid(userId, assetId, paid, burned)
	return paid, burned, nil
}

func (w *workspace) repayByAmount(userId, assetId string, amount *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if err := requirePositive(amount); err != nil {
		return nil, nil, err
	}
	pa, err := w.account(userId, assetId)
	if err != nil {
		return nil, nil, err
	}
	paid, burned, err := pa.RepayByAmount(w.lp.log, amount)
	if err != nil {
		return nil, nil, err
	}
	w.repaid(userId, assetId, paid, burned)
	return paid, burned, nil
}

func (w *workspace) repaid(userId, assetId string, paid, burned *uint256.Int) {
	w.pull(userId, assetId, paid)
	w.emit(core.EventRepay, userId, assetId, core.AmountDetail(paid, burned))
}

func (w *workspace) setUseAsCollateral(userId, assetId string, enabled bool) error {
	pa, err := w.account(userId, assetId)
	if err != nil {
		return err
	}
	if err := pa.SetUseAsCollateral(w.lp.log, enabled); err != nil {
		return err
	}
	if !enabled {
		if err := w.checkHealth(userId); err != nil {
			return errors.Wrap(err, "can't disable collateral")
		}
	}
	detail := core.EventDetail{}.With("enabled", strconv.FormatBool(enabled))
	w.emit(core.EventSetCollateral, userId, assetId, detail)
	return nil
}
