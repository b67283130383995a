package wad

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var (
	ErrDivisionByZero = errors.New("wad: division by zero")
	ErrOverflow       = errors.New("wad: multiplication overflow")
	ErrUnderflow      = errors.New("wad: subtraction underflow")
)

// Package level values are shared and must never be used as a receiver.
var (
	WAD      = uint256.NewInt(1e18)
	HALF_WAD = uint256.NewInt(5e17)
)

func Zero() *uint256.Int {
	return new(uint256.Int)
}

func NewInt(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Wads returns v scaled by WAD.
func Wads(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), WAD)
}

// Ratio returns num/den scaled by WAD, e.g. Ratio(5, 100) is 0.05 WAD.
func Ratio(num, den uint64) *uint256.Int {
	z, err := MulDivDown(uint256.NewInt(num), WAD, uint256.NewInt(den))
	if err != nil {
		panic(err)
	}
	return z
}

// MulDivDown computes floor(x*y/d) with a 512-bit intermediate product.
func MulDivDown(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDivUp computes ceil(x*y/d).
func MulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDivDown(x, y, d)
	if err != nil {
		return nil, err
	}
	if new(uint256.Int).MulMod(x, y, d).IsZero() {
		return z, nil
	}
	return Add(z, uint256.NewInt(1))
}

func WadMul(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDivDown(x, y, WAD)
}

func WadDiv(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDivDown(x, WAD, y)
}

func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, errors.Wrapf(ErrUnderflow, "%s - %s", x.Dec(), y.Dec())
	}
	return z, nil
}

// SubFloor returns x-y, or zero when y exceeds x.
func SubFloor(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return Zero()
	}
	return new(uint256.Int).Sub(x, y)
}

func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x.Clone()
	}
	return y.Clone()
}

// CloneOrZero copies x, treating nil as zero.
func CloneOrZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return Zero()
	}
	return x.Clone()
}
