package core

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type MemoActionType uint8

const (
	MATDeposit MemoActionType = iota + 1
	MATWithdraw
	MATBorrow
	MATRepayByShare
	MATRepayByAmount
	MATLiquidate
	MATSetCollateral
	MATClaimAlpha
)

func (m MemoActionType) String() string {
	switch m {
	case MATDeposit:
		return "Deposit"
	case MATWithdraw:
		return "Withdraw"
	case MATBorrow:
		return "Borrow"
	case MATRepayByShare:
		return "Repay By Share"
	case MATRepayByAmount:
		return "Repay By Amount"
	case MATLiquidate:
		return "Liquidate"
	case MATSetCollateral:
		return "Set Collateral"
	case MATClaimAlpha:
		return "Claim Alpha"
	default:
		return "Unknown"
	}
}

func ValidActionTypeString(action string) (MemoActionType, bool) {
	for m := MATDeposit; m <= MATClaimAlpha; m++ {
		if m.String() == action {
			return m, true
		}
	}
	return 0, false
}

func (m MemoActionType) Valid() bool {
	return m >= MATDeposit && m <= MATClaimAlpha
}

type MemoAction struct {
	ActionType MemoActionType `json:"t"`
}

func (m MemoAction) Valid() bool {
	return m.ActionType.Valid()
}

// Amounts and shares in memos are human readable decimals, converted to WAD
// integers by the dispatcher.
type (
	MemoActionDeposit struct {
		MemoAction
		AssetId string          `json:"p"`
		Amount  decimal.Decimal `json:"a"`
	}

	MemoActionWithdraw struct {
		MemoAction
		AssetId string          `json:"p"`
		Shares  decimal.Decimal `json:"s"`
	}

	MemoActionBorrow struct {
		MemoAction
		AssetId string          `json:"p"`
		Amount  decimal.Decimal `json:"a"`
	}

	MemoActionRepayByShare struct {
		MemoAction
		AssetId string          `json:"p"`
		Shares  decimal.Decimal `json:"s"`
	}

	MemoActionRepayByAmount struct {
		MemoAction
		AssetId string          `json:"p"`
		Amount  decimal.Decimal `json:"a"`
	}

	MemoActionLiquidate struct {
		MemoAction
		Debtor            string          `json:"u"`
		DebtAssetId       string          `json:"p"`
		CollateralAssetId string          `json:"c"`
		Shares            decimal.Decimal `json:"s"`
	}

	MemoActionSetCollateral struct {
		MemoAction
		AssetId string `json:"p"`
		Enabled bool   `json:"e"`
	}

	MemoActionClaimAlpha struct {
		MemoAction
	}
)

func (m MemoActionDeposit) Valid() bool {
	return m.ActionType == MATDeposit && m.AssetId != "" && m.Amount.IsPositive()
}

func (m MemoActionWithdraw) Valid() bool {
	return m.ActionType == MATWithdraw && m.AssetId != "" && m.Shares.IsPositive()
}

func (m MemoActionBorrow) Valid() bool {
	return m.ActionType == MATBorrow && m.AssetId != "" && m.Amount.IsPositive()
}

func (m MemoActionRepayByShare) Valid() bool {
	return m.ActionType == MATRepayByShare && m.AssetId != "" && m.Shares.IsPositive()
}

func (m MemoActionRepayByAmount) Valid() bool {
	return m.ActionType == MATRepayByAmount && m.AssetId != "" && m.Amount.IsPositive()
}

func (m MemoActionLiquidate) Valid() bool {
	if m.ActionType != MATLiquidate {
		return false
	}
	if m.Debtor == "" || m.DebtAssetId == "" || m.CollateralAssetId == "" {
		return false
	}
	return m.Shares.IsPositive()
}

func (m MemoActionSetCollateral) Valid() bool {
	return m.ActionType == MATSetCollateral && m.AssetId != ""
}

func (m MemoActionClaimAlpha) Valid() bool {
	return m.ActionType == MATClaimAlpha
}

// EncodeMemo renders a memo action as hex(base64(json)).
func EncodeMemo(a any) (string, error) {
	bytes, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString([]byte(base64.StdEncoding.EncodeToString(bytes))), nil
}

func DecodeMemo(memo string) (*MemoAction, error) {
	var action MemoAction
	if err := DecodeMemoAny(memo, &action); err != nil {
		return nil, err
	}
	if !action.Valid() {
		return nil, errors.Wrapf(ErrInvalidMemo, "unknown action type %d", action.ActionType)
	}
	return &action, nil
}

func DecodeMemoAny(memo string, res any) error {
	memoBase64, err := hex.DecodeString(memo)
	if err != nil {
		return errors.Wrap(ErrInvalidMemo, err.Error())
	}

	memoJson, err := base64.StdEncoding.DecodeString(string(memoBase64))
	if err != nil {
		return errors.Wrap(ErrInvalidMemo, err.Error())
	}

	if err := json.Unmarshal(memoJson, res); err != nil {
		return errors.Wrap(ErrInvalidMemo, err.Error())
	}
	return nil
}
