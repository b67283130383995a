package core

import (
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/pkg/errors"
)

type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindAuthorization
	KindHealthCheck
	KindCollateral
	KindState
	KindMath
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindAuthorization:
		return "Authorization"
	case KindHealthCheck:
		return "HealthCheck"
	case KindCollateral:
		return "Collateral"
	case KindState:
		return "State"
	case KindMath:
		return "Math"
	default:
		return "Unknown"
	}
}

// Error is a whole-call abort. Sentinels are compared by identity.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrPoolNotDepositable    = newError(KindValidation, "can't deposit to this pool")
	ErrPoolNotBorrowable     = newError(KindValidation, "can't borrow this pool")
	ErrPoolNotRepayable      = newError(KindValidation, "can't repay to this pool")
	ErrPoolNotWithdrawable   = newError(KindValidation, "can't withdraw this pool")
	ErrPoolNotLiquidatable   = newError(KindValidation, "can't liquidate this pool")
	ErrPoolInactive          = newError(KindValidation, "pool is inactive")
	ErrInvalidAmount         = newError(KindValidation, "amount must be greater than zero")
	ErrZeroShares            = newError(KindValidation, "share amount must be greater than zero")
	ErrInsufficientLiquidity = newError(KindValidation, "amount is more than available liquidity on pool")
	ErrReserveExceeded       = newError(KindValidation, "amount is more than pool reserves")
	ErrNoDebt                = newError(KindValidation, "user didn't borrow this token")
	ErrNoLiquidity           = newError(KindValidation, "user doesn't have liquidity shares in this pool")
	ErrSelfLiquidation       = newError(KindValidation, "can't liquidate your own account")
	ErrInvalidPoolConfig     = newError(KindValidation, "invalid pool configuration")
	ErrInvalidPoolStatus     = newError(KindValidation, "invalid pool status")
	ErrInvalidReservePercent = newError(KindValidation, "reserve percent must not exceed 100%")
	ErrInvalidMemo           = newError(KindValidation, "invalid action memo")

	ErrNotOwner       = newError(KindAuthorization, "caller is not the owner")
	ErrNotDistributor = newError(KindAuthorization, "caller is not the distributor")

	ErrAccountNotHealthy = newError(KindHealthCheck, "account is not healthy")
	ErrAccountHealthy    = newError(KindHealthCheck, "user's account is healthy. can't liquidate this account")

	ErrCollateralNotEnabled   = newError(KindCollateral, "user didn't enable the requested collateral")
	ErrPoolNotCollateral      = newError(KindCollateral, "this pool isn't used as collateral")
	ErrInsufficientCollateral = newError(KindCollateral, "user collateral isn't enough")

	ErrPoolExists        = newError(KindState, "this pool already exists on lending pool")
	ErrPoolNotFound      = newError(KindState, "pool isn't initialized")
	ErrReceiptNotFound   = newError(KindState, "receipt not found")
	ErrDuplicateRequest  = newError(KindState, "request has already been processed")
	ErrPriceOracleNotSet = newError(KindState, "price oracle isn't set")
	ErrPriceUnavailable  = newError(KindState, "asset price is unavailable")
	ErrDistributorNotSet = newError(KindState, "distributor isn't set")
	ErrAlphaAssetNotSet  = newError(KindState, "alpha asset isn't set")
)

// KindOf reports the taxonomy of err, looking through wrapping.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, wad.ErrDivisionByZero) || errors.Is(err, wad.ErrOverflow) || errors.Is(err, wad.ErrUnderflow) {
		return KindMath
	}
	return KindUnknown
}
