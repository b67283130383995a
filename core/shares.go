package core

import (
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
)

// Conversions between amounts and shares. Every direction rounds in favor of
// the pool: users receive rounded-down shares or amounts and owe rounded-up ones.

// CalculateLiquidityShareAmount returns the shares minted for depositing amount.
func (p *Pool) CalculateLiquidityShareAmount(amount *uint256.Int) (*uint256.Int, error) {
	if p.TotalLiquidityShares.IsZero() {
		return amount.Clone(), nil
	}
	totalLiquidity, err := p.TotalLiquidity()
	if err != nil {
		return nil, err
	}
	return wad.MulDivDown(amount, p.TotalLiquidityShares, totalLiquidity)
}

// CalculateLiquidityAmount returns the amount paid out for burning shares.
func (p *Pool) CalculateLiquidityAmount(shares *uint256.Int) (*uint256.Int, error) {
	if p.TotalLiquidityShares.IsZero() {
		return wad.Zero(), nil
	}
	totalLiquidity, err := p.TotalLiquidity()
	if err != nil {
		return nil, err
	}
	return wad.MulDivDown(shares, totalLiquidity, p.TotalLiquidityShares)
}

// CalculateRoundUpLiquidityShareAmount returns the shares that must be given
// up to release amount, as used when seizing collateral.
func (p *Pool) CalculateRoundUpLiquidityShareAmount(amount *uint256.Int) (*uint256.Int, error) {
	totalLiquidity, err := p.TotalLiquidity()
	if err != nil {
		return nil, err
	}
	if p.TotalLiquidityShares.IsZero() || totalLiquidity.IsZero() {
		return amount.Clone(), nil
	}
	return wad.MulDivUp(amount, p.TotalLiquidityShares, totalLiquidity)
}

// CalculateRoundUpBorrowShareAmount returns the borrow shares minted for new debt.
func (p *Pool) CalculateRoundUpBorrowShareAmount(amount *uint256.Int) (*uint256.Int, error) {
	if p.TotalBorrowShares.IsZero() || p.TotalBorrows.IsZero() {
		return amount.Clone(), nil
	}
	return wad.MulDivUp(amount, p.TotalBorrowShares, p.TotalBorrows)
}

// CalculateRoundUpBorrowAmount returns the amount owed for shares.
func (p *Pool) CalculateRoundUpBorrowAmount(shares *uint256.Int) (*uint256.Int, error) {
	if p.TotalBorrowShares.IsZero() {
		return shares.Clone(), nil
	}
	return wad.MulDivUp(shares, p.TotalBorrows, p.TotalBorrowShares)
}

// CalculateRoundDownBorrowShareAmount returns the borrow shares a repayment of amount burns.
func (p *Pool) CalculateRoundDownBorrowShareAmount(amount *uint256.Int) (*uint256.Int, error) {
	if p.TotalBorrows.IsZero() {
		return wad.Zero(), nil
	}
	return wad.MulDivDown(amount, p.TotalBorrowShares, p.TotalBorrows)
}
