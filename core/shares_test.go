package core

import (
	"testing"

	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sharePool has 200 tokens of liquidity backing 100 raw shares and 200 tokens
// of debt behind 100 raw borrow shares.
func sharePool() *Pool {
	p := newTestPool("BNB", 0, 0, 200, 0)
	p.TotalLiquidityShares = wad.NewInt(100)
	p.TotalBorrowShares = wad.NewInt(100)
	return p
}

func TestLiquidityShareConversions(t *testing.T) {
	p := sharePool()

	tests := []struct {
		name   string
		calc   func(*uint256.Int) (*uint256.Int, error)
		amount *uint256.Int
		want   string
	}{
		{"deposit exact", p.CalculateLiquidityShareAmount, wad.Wads(4), "2"},
		{"deposit rounds down", p.CalculateLiquidityShareAmount, wad.MustParse("5800000000000000000"), "2"},
		{"withdraw amount", p.CalculateLiquidityAmount, wad.NewInt(2), "4000000000000000000"},
		{"seize exact", p.CalculateRoundUpLiquidityShareAmount, wad.Wads(4), "2"},
		{"seize rounds up", p.CalculateRoundUpLiquidityShareAmount, wad.Wads(255), "128"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.calc(tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Dec())
		})
	}
}

func TestBorrowShareConversions(t *testing.T) {
	p := sharePool()

	amount, err := p.CalculateRoundUpBorrowAmount(wad.NewInt(55))
	require.NoError(t, err)
	assert.Equal(t, wad.Wads(110).Dec(), amount.Dec())

	shares, err := p.CalculateRoundUpBorrowShareAmount(wad.MustParse("2500000000000000001"))
	require.NoError(t, err)
	assert.Equal(t, "2", shares.Dec())

	shares, err = p.CalculateRoundDownBorrowShareAmount(wad.MustParse("3999999999999999999"))
	require.NoError(t, err)
	assert.Equal(t, "1", shares.Dec())

	p = newTestPool("BNB", 200, 100, 150, 100)
	shares, err = p.CalculateRoundUpBorrowShareAmount(wad.Wads(20))
	require.NoError(t, err)
	assert.Equal(t, "13333333333333333334", shares.Dec())

	amount, err = p.CalculateRoundUpBorrowAmount(wad.Wads(9))
	require.NoError(t, err)
	assert.Equal(t, "13500000000000000000", amount.Dec())
}

func TestShareConversionsOnEmptyPool(t *testing.T) {
	p := newTestPool("BNB", 0, 0, 0, 0)
	amount := wad.Wads(7)

	for name, calc := range map[string]func(*uint256.Int) (*uint256.Int, error){
		"deposit":     p.CalculateLiquidityShareAmount,
		"seize":       p.CalculateRoundUpLiquidityShareAmount,
		"borrow":      p.CalculateRoundUpBorrowShareAmount,
		"borrow owed": p.CalculateRoundUpBorrowAmount,
	} {
		got, err := calc(amount)
		require.NoError(t, err, name)
		assert.Equal(t, amount.Dec(), got.Dec(), name)
	}

	got, err := p.CalculateLiquidityAmount(amount)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = p.CalculateRoundDownBorrowShareAmount(amount)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
