package core

import (
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/facebookgo/clock"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// PoolAccount pairs a user position with its pool. Every share mutation goes
// through it so the reward of the touched side is settled first.
type PoolAccount struct {
	clk clock.Clock `json:"-"`

	Position *UserPoolPosition `json:"position"`
	Pool     *Pool             `json:"pool"`
}

type OptionFunc func(pa *PoolAccount)

func WithClock(clk clock.Clock) OptionFunc {
	return func(pa *PoolAccount) {
		pa.clk = clk
	}
}

func NewPoolAccount(position *UserPoolPosition, pool *Pool, opts ...OptionFunc) *PoolAccount {
	pa := &PoolAccount{
		Position: position,
		Pool:     pool,
		clk:      clock.New(),
	}
	for _, opt := range opts {
		opt(pa)
	}
	return pa
}

func (pa *PoolAccount) SettleLendAlpha(log Log) error {
	pending, err := PendingAlpha(pa.Pool.LendAlphaMultiplier, pa.Position.LastLendAlphaMultiplier, pa.Position.LiquidityShares)
	if err != nil {
		return err
	}
	if err := pa.creditAlpha(log, pending, "lend"); err != nil {
		return err
	}
	pa.Position.LastLendAlphaMultiplier = wad.CloneOrZero(pa.Pool.LendAlphaMultiplier)
	return nil
}

func (pa *PoolAccount) SettleBorrowAlpha(log Log) error {
	pending, err := PendingAlpha(pa.Pool.BorrowAlphaMultiplier, pa.Position.LastBorrowAlphaMultiplier, pa.Position.BorrowShares)
	if err != nil {
		return err
	}
	if err := pa.creditAlpha(log, pending, "borrow"); err != nil {
		return err
	}
	pa.Position.LastBorrowAlphaMultiplier = wad.CloneOrZero(pa.Pool.BorrowAlphaMultiplier)
	return nil
}

func (pa *PoolAccount) SettleAlpha(log Log) error {
	if err := pa.SettleLendAlpha(log); err != nil {
		return err
	}
	return pa.SettleBorrowAlpha(log)
}

func (pa *PoolAccount) creditAlpha(log Log, pending *uint256.Int, side string) error {
	if pending.IsZero() {
		return nil
	}
	claimable, err := wad.Add(wad.CloneOrZero(pa.Position.AlphaClaimable), pending)
	if err != nil {
		return err
	}
	log.Debug().
		Str("user", pa.Position.UserId).
		Str("asset", pa.Pool.AssetId).
		Str("side", side).
		Str("pending", pending.Dec()).
		Msg("settle alpha")
	pa.Position.AlphaClaimable = claimable
	return nil
}

// Deposit mints liquidity shares for amount. The first deposit of a position
// enables it as collateral.
func (pa *PoolAccount) Deposit(log Log, amount *uint256.Int) (*uint256.Int, error) {
	if err := pa.Pool.AssertOperational(MATDeposit); err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	if err := pa.SettleLendAlpha(log); err != nil {
		return nil, err
	}

	shares, err := pa.Pool.CalculateLiquidityShareAmount(amount)
	if err != nil {
		return nil, err
	}
	if shares.IsZero() {
		return nil, ErrZeroShares
	}

	if err := pa.mintLiquidity(shares); err != nil {
		return nil, err
	}
	if pa.Pool.Cash, err = wad.Add(pa.Pool.Cash, amount); err != nil {
		return nil, err
	}

	if !pa.Position.Initialized {
		pa.Position.Initialized = true
		pa.Position.UseAsCollateral = true
	}
	pa.touch()
	return shares, nil
}

// Withdraw burns up to shares liquidity shares and returns the amount released
// together with the shares actually burned.
func (pa *PoolAccount) Withdraw(log Log, shares *uint256.Int) (amount, burned *uint256.Int, err error) {
	if err := pa.Pool.AssertOperational(MATWithdraw); err != nil {
		return nil, nil, err
	}
	if shares.IsZero() {
		return nil, nil, ErrZeroShares
	}
	if err := pa.SettleLendAlpha(log); err != nil {
		return nil, nil, err
	}

	burned = wad.Min(shares, pa.Position.LiquidityShares)
	if burned.IsZero() {
		return nil, nil, ErrNoLiquidity
	}
	amount, err = pa.Pool.CalculateLiquidityAmount(burned)
	if err != nil {
		return nil, nil, err
	}
	if amount.Gt(pa.Pool.AvailableLiquidity()) {
		return nil, nil, errors.Wrapf(ErrInsufficientLiquidity, "withdraw %s, available %s", amount.Dec(), pa.Pool.Cash.Dec())
	}

	if err := pa.burnLiquidity(burned); err != nil {
		return nil, nil, err
	}
	if pa.Pool.Cash, err = wad.Sub(pa.Pool.Cash, amount); err != nil {
		return nil, nil, err
	}
	pa.touch()
	return amount, burned, nil
}

// Borrow mints rounded-up borrow shares for amount.
func (pa *PoolAccount) Borrow(log Log, amount *uint256.Int) (*uint256.Int, error) {
	if err := pa.Pool.AssertOperational(MATBorrow); err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	if amount.Gt(pa.Pool.AvailableLiquidity()) {
		return nil, errors.Wrapf(ErrInsufficientLiquidity, "borrow %s, available %s", amount.Dec(), pa.Pool.Cash.Dec())
	}
	if err := pa.SettleBorrowAlpha(log); err != nil {
		return nil, err
	}

	shares, err := pa.Pool.CalculateRoundUpBorrowShareAmount(amount)
	if err != nil {
		return nil, err
	}

	if pa.Pool.TotalBorrows, err = wad.Add(pa.Pool.TotalBorrows, amount); err != nil {
		return nil, err
	}
	if pa.Pool.TotalBorrowShares, err = wad.Add(pa.Pool.TotalBorrowShares, shares); err != nil {
		return nil, err
	}
	if pa.Position.BorrowShares, err = wad.Add(pa.Position.BorrowShares, shares); err != nil {
		return nil, err
	}
	if pa.Pool.Cash, err = wad.Sub(pa.Pool.Cash, amount); err != nil {
		return nil, err
	}
	pa.touch()
	return shares, nil
}

// RepayByShare burns up to shares borrow shares and returns the amount owed
// for them together with the shares actually burned.
func (pa *PoolAccount) RepayByShare(log Log, shares *uint256.Int) (amount, burned *uint256.Int, err error) {
	if err := pa.Pool.AssertOperational(MATRepayByShare); err != nil {
		return nil, nil, err
	}
	if shares.IsZero() {
		return nil, nil, ErrZeroShares
	}
	return pa.repay(log, shares)
}

// RepayByAmount converts amount to rounded-down shares and repays those.
func (pa *PoolAccount) RepayByAmount(log Log, amount *uint256.Int) (paid, burned *uint256.Int, err error) {
	if err := pa.Pool.AssertOperational(MATRepayByAmount); err != nil {
		return nil, nil, err
	}
	if amount.IsZero() {
		return nil, nil, ErrInvalidAmount
	}
	shares, err := pa.Pool.CalculateRoundDownBorrowShareAmount(amount)
	if err != nil {
		return nil, nil, err
	}
	if shares.IsZero() {
		if !pa.Position.HasDebt() {
			return nil, nil, ErrNoDebt
		}
		return nil, nil, ErrZeroShares
	}
	return pa.repay(log, shares)
}

func (pa *PoolAccount) repay(log Log, shares *uint256.Int) (amount, burned *uint256.Int, err error) {
	if err := pa.SettleBorrowAlpha(log); err != nil {
		return nil, nil, err
	}
	if !pa.Position.HasDebt() {
		return nil, nil, ErrNoDebt
	}

	burned = wad.Min(shares, pa.Position.BorrowShares)
	amount, err = pa.Pool.CalculateRoundUpBorrowAmount(burned)
	if err != nil {
		return nil, nil, err
	}
	if err := pa.burnDebt(amount, burned); err != nil {
		return nil, nil, err
	}
	if pa.Pool.Cash, err = wad.Add(pa.Pool.Cash, amount); err != nil {
		return nil, nil, err
	}
	pa.touch()
	return amount, burned, nil
}

// SetUseAsCollateral flips the collateral flag after settling the lend side.
func (pa *PoolAccount) SetUseAsCollateral(log Log, enabled bool) error {
	if err := pa.Pool.AssertOperational(MATSetCollateral); err != nil {
		return err
	}
	if err := pa.SettleLendAlpha(log); err != nil {
		return err
	}
	pa.Position.UseAsCollateral = enabled
	pa.touch()
	return nil
}

// ClaimAlpha settles both sides and empties the claimable balance.
func (pa *PoolAccount) ClaimAlpha(log Log) (*uint256.Int, error) {
	if err := pa.SettleAlpha(log); err != nil {
		return nil, err
	}
	claimed := wad.CloneOrZero(pa.Position.AlphaClaimable)
	if !claimed.IsZero() {
		pa.Position.AlphaClaimable = wad.Zero()
		pa.touch()
	}
	return claimed, nil
}

func (pa *PoolAccount) mintLiquidity(shares *uint256.Int) (err error) {
	if pa.Pool.TotalLiquidityShares, err = wad.Add(pa.Pool.TotalLiquidityShares, shares); err != nil {
		return err
	}
	pa.Position.LiquidityShares, err = wad.Add(pa.Position.LiquidityShares, shares)
	return err
}

func (pa *PoolAccount) burnLiquidity(shares *uint256.Int) (err error) {
	if pa.Position.LiquidityShares, err = wad.Sub(pa.Position.LiquidityShares, shares); err != nil {
		return err
	}
	pa.Pool.TotalLiquidityShares, err = wad.Sub(pa.Pool.TotalLiquidityShares, shares)
	return err
}

func (pa *PoolAccount) burnDebt(amount, shares *uint256.Int) (err error) {
	if pa.Position.BorrowShares, err = wad.Sub(pa.Position.BorrowShares, shares); err != nil {
		return err
	}
	if pa.Pool.TotalBorrowShares, err = wad.Sub(pa.Pool.TotalBorrowShares, shares); err != nil {
		return err
	}
	if pa.Pool.TotalBorrowShares.IsZero() {
		pa.Pool.TotalBorrows = wad.Zero()
		return nil
	}
	pa.Pool.TotalBorrows = wad.SubFloor(pa.Pool.TotalBorrows, amount)
	return nil
}

func (pa *PoolAccount) touch() {
	now := pa.clk.Now().Unix()
	pa.Position.UpdatedAt = now
	pa.Pool.UpdatedAt = now
}
