package core

import (
	"context"
	"testing"

	"github.com/DomeLiquid/alphalend/wad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liquidationFixture struct {
	oracle *StaticPriceOracle
	pools  map[string]*Pool
	alice  map[string]*PoolAccount
}

// newLiquidationFixture accrues three pools for 90 days and one second with
// alice holding liquidity and debt in all of them.
func newLiquidationFixture(t *testing.T) *liquidationFixture {
	f := &liquidationFixture{
		oracle: NewStaticPriceOracle(),
		pools: map[string]*Pool{
			"BNB":  newTestPool("BNB", 200, 120, 150, 100),
			"BUSD": newTestPool("BUSD", 100, 15, 20, 5),
			"DAI":  newTestPool("DAI", 50, 35, 20, 10),
		},
		alice: map[string]*PoolAccount{},
	}
	f.oracle.SetPrice("BNB", wad.WAD)
	f.oracle.SetPrice("BUSD", wad.Ratio(15, 10))
	f.oracle.SetPrice("DAI", wad.Wads(2))

	positions := map[string][2]uint64{
		"BNB":  {20, 33},
		"BUSD": {5, 5},
		"DAI":  {10, 10},
	}
	for symbol, p := range f.pools {
		p.LastUpdateTimestamp = 0
		require.NoError(t, p.AccrueInterest(testLog(), 7776001, DEFAULT_RESERVE_PERCENT))

		pa := newTestAccount(p, "alice")
		pa.Position.LiquidityShares = wad.Wads(positions[symbol][0])
		pa.Position.BorrowShares = wad.Wads(positions[symbol][1])
		pa.Position.UseAsCollateral = true
		pa.Position.Initialized = true
		f.alice[symbol] = pa
	}
	return f
}

func (f *liquidationFixture) health(t *testing.T) *HealthEngine {
	accounts := make([]*PoolAccount, 0, len(f.alice))
	for _, pa := range f.alice {
		accounts = append(accounts, pa)
	}
	h, err := NewHealthEngine(context.Background(), f.oracle, "alice", accounts)
	require.NoError(t, err)
	return h
}

func TestAccountHealth(t *testing.T) {
	f := newLiquidationFixture(t)

	health, err := f.health(t).GetAccountHealth()
	require.NoError(t, err)
	assert.Equal(t, "120252882935658567066", health.CollateralValue.Dec())
	assert.Equal(t, "124767024939751395190", health.BorrowValue.Dec())
	assert.False(t, health.Healthy())
	assert.ErrorIs(t, f.health(t).CheckAccountHealth(), ErrAccountNotHealthy)
}

func TestAccountHealthSkipsDisabledCollateral(t *testing.T) {
	f := newLiquidationFixture(t)
	f.alice["DAI"].Position.UseAsCollateral = false
	f.pools["BNB"].Config.CollateralPercent = wad.Zero()

	health, err := f.health(t).GetAccountHealth()
	require.NoError(t, err)
	// only BUSD still counts as collateral
	busd := f.pools["BUSD"]
	amount, err := busd.CalculateLiquidityAmount(wad.Wads(5))
	require.NoError(t, err)
	value, err := wad.WadMul(amount, wad.Ratio(15, 10))
	require.NoError(t, err)
	value, err = wad.WadMul(value, wad.Ratio(75, 100))
	require.NoError(t, err)
	assert.Equal(t, value.Dec(), health.CollateralValue.Dec())
}

func TestHealthEngineWithoutOracle(t *testing.T) {
	f := newLiquidationFixture(t)
	_, err := NewHealthEngine(context.Background(), nil, "alice", []*PoolAccount{f.alice["BNB"]})
	assert.ErrorIs(t, err, ErrPriceOracleNotSet)

	// nothing to value, nothing to price
	empty := newTestAccount(f.pools["BNB"], "carol")
	h, err := NewHealthEngine(context.Background(), nil, "carol", []*PoolAccount{empty})
	require.NoError(t, err)
	healthy, err := h.IsAccountHealthy()
	require.NoError(t, err)
	assert.True(t, healthy)
}

func TestCalculateCollateralAmount(t *testing.T) {
	got, err := CalculateCollateralAmount(wad.Wads(2), wad.Wads(3), wad.Ratio(625, 1000), wad.Ratio(105, 100))
	require.NoError(t, err)
	assert.Equal(t, "437500000000000000", got.Dec())

	_, err = CalculateCollateralAmount(wad.Wads(2), wad.Zero(), wad.Wads(1), wad.WAD)
	assert.ErrorIs(t, err, wad.ErrDivisionByZero)
}

func TestLiquidationExecute(t *testing.T) {
	f := newLiquidationFixture(t)
	busd, bnb := f.pools["BUSD"], f.pools["BNB"]
	require.NoError(t, CheckLiquidationPools(busd, bnb))

	liquidation := &Liquidation{
		DebtorDebt:           f.alice["BUSD"],
		DebtorCollateral:     f.alice["BNB"],
		LiquidatorDebt:       newTestAccount(busd, "bob"),
		LiquidatorCollateral: newTestAccount(bnb, "bob"),
	}
	result, err := liquidation.Execute(testLog(), wad.Ratio(25, 10), wad.Ratio(15, 10), wad.WAD)
	require.NoError(t, err)

	assert.Equal(t, "2500000000000000000", result.RepaidShares.Dec())
	assert.Equal(t, "10349315068493150680", result.RepaidAmount.Dec())
	assert.Equal(t, "16300171232876712321", result.CollateralAmount.Dec())
	assert.Equal(t, "5474780107789690489", result.CollateralShares.Dec())

	assert.Equal(t, "10349315068493150680", busd.TotalBorrows.Dec())
	assert.Equal(t, "2500000000000000000", busd.TotalBorrowShares.Dec())
	assert.Equal(t, "110349315068493150680", busd.Cash.Dec())

	total, err := bnb.TotalLiquidity()
	require.NoError(t, err)
	assert.Equal(t, "357278376379375951243", total.Dec())
	assert.Equal(t, wad.Wads(120).Dec(), bnb.TotalLiquidityShares.Dec())

	assert.Equal(t, "14525219892210309511", f.alice["BNB"].Position.LiquidityShares.Dec())
	assert.Equal(t, "5474780107789690489", liquidation.LiquidatorCollateral.Position.LiquidityShares.Dec())
	assert.Equal(t, "2500000000000000000", f.alice["BUSD"].Position.BorrowShares.Dec())
}

func TestLiquidationPreconditions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *liquidationFixture)
		want   error
	}{
		{"collateral disabled", func(f *liquidationFixture) { f.alice["BNB"].Position.UseAsCollateral = false }, ErrCollateralNotEnabled},
		{"not a collateral pool", func(f *liquidationFixture) { f.pools["BNB"].Config.CollateralPercent = wad.Zero() }, ErrPoolNotCollateral},
		{"no debt", func(f *liquidationFixture) { f.alice["BUSD"].Position.BorrowShares = wad.Zero() }, ErrNoDebt},
		{"not enough collateral", func(f *liquidationFixture) { f.alice["BNB"].Position.LiquidityShares = wad.Wads(1) }, ErrInsufficientCollateral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLiquidationFixture(t)
			tt.modify(f)
			liquidation := &Liquidation{
				DebtorDebt:           f.alice["BUSD"],
				DebtorCollateral:     f.alice["BNB"],
				LiquidatorDebt:       newTestAccount(f.pools["BUSD"], "bob"),
				LiquidatorCollateral: newTestAccount(f.pools["BNB"], "bob"),
			}
			_, err := liquidation.Execute(testLog(), wad.Ratio(25, 10), wad.Ratio(15, 10), wad.WAD)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckLiquidationPools(t *testing.T) {
	debt := newTestPool("BUSD", 1, 1, 0, 0)
	collateral := newTestPool("BNB", 1, 1, 0, 0)

	collateral.Status = PoolStatusClosed
	assert.NoError(t, CheckLiquidationPools(debt, collateral))

	collateral.Status = PoolStatusInactive
	assert.ErrorIs(t, CheckLiquidationPools(debt, collateral), ErrPoolInactive)

	debt.Status = PoolStatusClosed
	assert.ErrorIs(t, CheckLiquidationPools(debt, collateral), ErrPoolNotLiquidatable)
}

func TestNewStaticPriceOracle(t *testing.T) {
	o := NewStaticPriceOracle()
	_, err := o.GetAssetPrice(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	price := wad.Wads(3)
	o.SetPrice("BNB", price)
	price.SetUint64(0)
	got, err := o.GetAssetPrice(context.Background(), "BNB")
	require.NoError(t, err)
	assert.Equal(t, wad.Wads(3).Dec(), got.Dec())
}
