package wad

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const DECIMALS = 18

// ToDecimal renders a WAD-scaled integer as a human readable decimal.
func ToDecimal(x *uint256.Int) decimal.Decimal {
	if x == nil {
		return decimal.Zero
	}
	return decimal.RequireFromString(x.Dec()).Shift(-DECIMALS)
}

// FromDecimal scales d by WAD and truncates the remaining fraction.
func FromDecimal(d decimal.Decimal) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, errors.Wrapf(ErrUnderflow, "negative value %s", d)
	}
	z, err := uint256.FromDecimal(d.Shift(DECIMALS).Truncate(0).String())
	if err != nil {
		return nil, errors.Wrapf(err, "convert %s", d)
	}
	return z, nil
}

// FromDecimalString parses a human readable decimal such as "0.05".
func FromDecimalString(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse decimal %q", s)
	}
	return FromDecimal(d)
}

// Parse reads a base-10 integer string that is already WAD scaled.
func Parse(s string) (*uint256.Int, error) {
	z, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse integer %q", s)
	}
	return z, nil
}

func MustParse(s string) *uint256.Int {
	z, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return z
}
