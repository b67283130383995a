package alphalend

import (
	"context"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Dispatch runs the action encoded in a snapshot memo. Funds attached to the
// snapshot are already in custody; the action spends them first and whatever
// is left is sent back. A rejected action refunds the snapshot and records a
// failed receipt. Replaying a request id returns the stored receipt.
func (lp *LendingPool) Dispatch(ctx context.Context, snap core.Snapshot) (*core.Receipt, error) {
	log := lp.log
	if snap.RequestId == "" || snap.UserId == "" {
		return nil, errors.Wrap(core.ErrInvalidMemo, "missing request or user")
	}

	action, decodeErr := core.DecodeMemo(snap.Memo)
	actionType := core.MemoActionType(0)
	if decodeErr == nil {
		actionType = action.ActionType
	}

	stored, err := lp.store.GetReceiptByRequestId(ctx, snap.RequestId)
	switch {
	case err == nil:
		if !stored.IsValid(snap.UserId, actionType) {
			return nil, errors.Wrapf(core.ErrDuplicateRequest, "request %s", snap.RequestId)
		}
		log.Debug().Str("request", snap.RequestId).Str("status", stored.Status.String()).Msg("receipt replayed")
		return stored, nil
	case !errors.Is(err, core.ErrReceiptNotFound):
		return nil, err
	}

	receipt := core.NewReceipt(lp.clk, snap.RequestId, snap.UserId, snap.AssetId, actionType)
	if decodeErr != nil {
		return lp.reject(ctx, snap, receipt, decodeErr)
	}

	var attached *uint256.Int
	if snap.Attached() {
		if attached, err = wad.FromDecimal(snap.Amount); err != nil {
			return lp.reject(ctx, snap, receipt, err)
		}
	}

	err = lp.transact(ctx, actionType.String(), func(w *workspace) error {
		if attached != nil {
			w.prefund(snap.UserId, snap.AssetId, attached)
		}
		extra, err := w.execute(snap, actionType)
		if err != nil {
			return err
		}
		receipt.Extra = *extra
		receipt.UpdateStatus(lp.clk, core.ReceiptStatusConfirmed, "")
		w.receipts = append(w.receipts, receipt)
		return nil
	})
	if err != nil {
		return lp.reject(ctx, snap, receipt, err)
	}
	if actionType == core.MATLiquidate && receipt.Extra.LiquidateResult != nil {
		lp.metrics.ObserveLiquidation(receipt.Extra.LiquidateResult.DebtAssetId)
	}

	log.Info().
		Str("request", snap.RequestId).
		Str("user", snap.UserId).
		Stringer("action", actionType).
		Msg("dispatched")
	return receipt, nil
}

func (lp *LendingPool) reject(ctx context.Context, snap core.Snapshot, receipt *core.Receipt, cause error) (*core.Receipt, error) {
	lp.log.Warn().
		Err(cause).
		Str("request", snap.RequestId).
		Str("user", snap.UserId).
		Msg("dispatch rejected")

	// saved before the refund; a replay returns it and refunds nothing
	receipt.UpdateStatus(lp.clk, core.ReceiptStatusFailed, cause.Error())
	if err := lp.store.SaveReceipt(ctx, receipt); err != nil {
		return nil, err
	}

	if snap.Attached() {
		amount, err := wad.FromDecimal(snap.Amount)
		if err != nil {
			return nil, err
		}
		if err := lp.vault.Push(ctx, snap.UserId, snap.AssetId, amount); err != nil {
			lp.log.Error().Err(err).Str("request", snap.RequestId).Msg("refund failed")
			return nil, errors.Wrapf(err, "refund request %s", snap.RequestId)
		}
	}
	return receipt, nil
}

func (w *workspace) execute(snap core.Snapshot, actionType core.MemoActionType) (*core.ReceiptExtra, error) {
	user := snap.UserId
	switch actionType {
	case core.MATDeposit:
		var m core.MemoActionDeposit
		if err := decodeAction(snap.Memo, &m); err != nil {
			return nil, err
		}
		amount, err := wad.FromDecimal(m.Amount)
		if err != nil {
			return nil, err
		}
		shares, err := w.deposit(user, m.AssetId, amount)
		if err != nil {
			return nil, err
		}
		return &core.ReceiptExtra{Amount: amount.Dec(), Shares: shares.Dec()}, nil

	case core.MATWithdraw:
		var m core.MemoActionWithdraw
		if err := decodeAction(snap.Memo, &m); err != nil {
			return nil, err
		}
		shares, err := wad.FromDecimal(m.Shares)
		if err != nil {
			return nil, err
		}
		amount, burned, err := w.withdraw(user, m.AssetId, shares)
		if err != nil {
			return nil, err
		}
		return &core.ReceiptExtra{Amount: amount.Dec(), Shares: burned.Dec()}, nil

	case core.MATBorrow:
		var m core.MemoActionBorrow
		if err := decodeAction(snap.Memo, &m); err != nil {
			return nil, err
		}
		amount, err := wad.FromDecimal(m.Amount)
		if err != nil {
			return nil, err
		}
		shares, err := w.borrow(user, m.AssetId, amount)
		if err != nil {
			return nil, err
		}
		return &core.ReceiptExtra{Amount: amount.Dec(), Shares: shares.Dec()}, nil

	case core.MATRepayByShare:
		var m core.MemoActionRepayByShare
		if err := decodeAction(snap.Memo, &m); err != nil {
			return nil, err
		}
		shares, err := wad.FromDecimal(m.Shares)
		if err != nil {
			return nil, err
		}
		paid, burned, err := w.repayByShare(user, m.AssetId, shares)
		if err != nil {
			return nil, err
		}
		return &core.ReceiptExtra{Amount: paid.Dec(), Shares: burned.Dec()}, nil

	case core.MATRepayByAmount:
		var m core.MemoActionRepayByAmount
		if err := decodeAction(snap.Memo, &m); err != nil {
			return nil, err
		}
		amount, err := wad.FromDecimal(m.Amount)
		if err != nil {
			return nil, err
		}
		paid, burned, err := w.repayByAmount(user, m.AssetId, amount)
		if err != nil {
			return nil, err
		}
		return &core.ReceiptExtra{Amount: paid.Dec(), Shares: burned.Dec()}, nil

	case core.MATLiquidate:
		var m core.MemoActionLiquidate
		if err := decodeAction(snap.Memo, &m); err != nil {
			return nil, err
		}
		shares, err := wad.FromDecimal(m.Shares)
		if err != nil {
			return nil, err
		}
		result, err := w.liquidate(user, m.Debtor, m.DebtAssetId, shares, m.CollateralAssetId)
		if err != nil {
			return nil, err
		}
		return &core.ReceiptExtra{
			Amount:          result.RepaidAmount.Dec(),
			Shares:          result.RepaidShares.Dec(),
			LiquidateResult: result,
		}, nil

	case core.MATSetCollateral:
		var m core.MemoActionSetCollateral
		if err := decodeAction(snap.Memo, &m); err != nil {
			return nil, err
		}
		if err := w.setUseAsCollateral(user, m.AssetId, m.Enabled); err != nil {
			return nil, err
		}
		return &core.ReceiptExtra{}, nil

	case core.MATClaimAlpha:
		claimed, err := w.claimAlpha(user)
		if err != nil {
			return nil, err
		}
		return &core.ReceiptExtra{Amount: claimed.Dec()}, nil
	}
	return nil, errors.Wrapf(core.ErrInvalidMemo, "unknown action type %d", actionType)
}

func decodeAction(memo string, res interface{ Valid() bool }) error {
	if err := core.DecodeMemoAny(memo, res); err != nil {
		return err
	}
	if !res.Valid() {
		return errors.Wrap(core.ErrInvalidMemo, "missing fields")
	}
	return nil
}

// EncodeAction renders a memo an end user attaches to a transfer, e.g. for a
// pay url.
func EncodeAction(actionType core.MemoActionType, assetId string, amount decimal.Decimal) (string, error) {
	base := core.MemoAction{ActionType: actionType}
	switch actionType {
	case core.MATDeposit:
		return core.EncodeMemo(core.MemoActionDeposit{MemoAction: base, AssetId: assetId, Amount: amount})
	case core.MATWithdraw:
		return core.EncodeMemo(core.MemoActionWithdraw{MemoAction: base, AssetId: assetId, Shares: amount})
	case core.MATBorrow:
		return core.EncodeMemo(core.MemoActionBorrow{MemoAction: base, AssetId: assetId, Amount: amount})
	case core.MATRepayByShare:
		return core.EncodeMemo(core.MemoActionRepayByShare{MemoAction: base, AssetId: assetId, Shares: amount})
	case core.MATRepayByAmount:
		return core.EncodeMemo(core.MemoActionRepayByAmount{MemoAction: base, AssetId: assetId, Amount: amount})
	case core.MATClaimAlpha:
		return core.EncodeMemo(core.MemoActionClaimAlpha{MemoAction: base})
	}
	return "", errors.Wrapf(core.ErrInvalidMemo, "action %s needs its own memo", actionType)
}
