package alphalend

import (
	"testing"
	"time"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPoolConfig(t *testing.T) {
	f := newFixture(t)
	config := core.NewPoolConfig(wad.Zero(), wad.Ratio(4, 100), wad.Ratio(6, 10), wad.Ratio(8, 10), wad.Ratio(11, 10))

	err := f.lp.SetPoolConfig(f.ctx, owner, "doge", config)
	assert.ErrorIs(t, err, core.ErrPoolNotFound)
	assert.ErrorContains(t, err, "can't set the pool config")

	invalid := core.NewPoolConfig(wad.Zero(), wad.Ratio(4, 100), wad.Ratio(6, 10), wad.Ratio(8, 10), wad.Ratio(9, 10))
	assert.ErrorIs(t, f.lp.SetPoolConfig(f.ctx, owner, bnb, invalid), core.ErrInvalidPoolConfig)
	assert.ErrorIs(t, f.lp.SetPoolConfig(f.ctx, "bob", bnb, config), core.ErrNotOwner)

	require.NoError(t, f.lp.SetPoolConfig(f.ctx, owner, bnb, config))
	pool := f.pool(t, bnb)
	assert.Equal(t, wad.Ratio(8, 10).Dec(), pool.Config.CollateralPercent.Dec())
	assert.Equal(t, wad.Ratio(11, 10).Dec(), pool.Config.LiquidationBonus.Dec())

	events := f.events(t, owner, core.EventPoolConfigUpdated)
	require.Len(t, events, 1)
	assert.Equal(t, wad.Ratio(8, 10).Dec(), events[0].Detail.Extra["collateralPercent"])
}

func TestSetReservePercent(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, core.DEFAULT_RESERVE_PERCENT.Dec(), f.lp.ReservePercent().Dec())

	err := f.lp.SetReservePercent(f.ctx, owner, new(uint256.Int).Add(wad.WAD, wad.NewInt(1)))
	assert.ErrorIs(t, err, core.ErrInvalidReservePercent)
	assert.ErrorIs(t, f.lp.SetReservePercent(f.ctx, "bob", wad.Ratio(1, 2)), core.ErrNotOwner)
	assert.Equal(t, core.DEFAULT_RESERVE_PERCENT.Dec(), f.lp.ReservePercent().Dec())

	require.NoError(t, f.lp.SetReservePercent(f.ctx, owner, wad.Ratio(1, 2)))
	assert.Equal(t, wad.Ratio(1, 2).Dec(), f.lp.ReservePercent().Dec())

	events := f.events(t, owner, core.EventReservePercentUpdated)
	require.Len(t, events, 1)
	assert.Equal(t, core.DEFAULT_RESERVE_PERCENT.Dec(), events[0].Detail.Extra["previous"])

	f.deposit(t, "bob", busd, 100)
	f.deposit(t, "alice", bnb, 100)
	_, err = f.lp.Borrow(f.ctx, "alice", busd, wad.Wads(50))
	require.NoError(t, err)
	f.clk.Add(30 * 24 * time.Hour)

	data, err := f.lp.GetPoolData(f.ctx, busd)
	require.NoError(t, err)
	interest := new(uint256.Int).Sub(data.TotalBorrows, wad.Wads(50))
	assert.Equal(t, new(uint256.Int).Div(interest, uint256.NewInt(2)).Dec(), data.PoolReserves.Dec())
}

func TestWithdrawReserve(t *testing.T) {
	f := newFixture(t)

	pool := f.pool(t, bnb)
	pool.Cash = wad.Wads(100)
	pool.PoolReserves = wad.Wads(25)
	require.NoError(t, f.store.Commit(f.ctx, &core.ChangeSet{Pools: []*core.Pool{pool}}))
	f.vault.Receive(bnb, wad.Wads(100))

	assert.ErrorIs(t, f.lp.WithdrawReserve(f.ctx, "bob", bnb, wad.Wads(1)), core.ErrNotOwner)
	assert.ErrorIs(t, f.lp.WithdrawReserve(f.ctx, owner, bnb, wad.Zero()), core.ErrInvalidAmount)
	assert.ErrorIs(t, f.lp.WithdrawReserve(f.ctx, owner, bnb, wad.Wads(26)), core.ErrReserveExceeded)

	require.NoError(t, f.lp.WithdrawReserve(f.ctx, owner, bnb, wad.Wads(10)))
	pool = f.pool(t, bnb)
	assert.Equal(t, wad.Wads(15).Dec(), pool.PoolReserves.Dec())
	assert.Equal(t, wad.Wads(90).Dec(), pool.Cash.Dec())
	assert.Equal(t, wad.Wads(10).Dec(), f.vault.Balance(owner, bnb).Dec())

	assert.ErrorIs(t, f.lp.WithdrawReserve(f.ctx, owner, bnb, wad.Wads(16)), core.ErrReserveExceeded)
	assert.Len(t, f.events(t, owner, core.EventReserveWithdrawn), 1)
}

func TestWithdrawReserveBeyondCash(t *testing.T) {
	f := newFixture(t)

	pool := f.pool(t, bnb)
	pool.Cash = wad.Wads(5)
	pool.TotalBorrows = wad.Wads(50)
	pool.PoolReserves = wad.Wads(10)
	require.NoError(t, f.store.Commit(f.ctx, &core.ChangeSet{Pools: []*core.Pool{pool}}))

	err := f.lp.WithdrawReserve(f.ctx, owner, bnb, wad.Wads(6))
	assert.ErrorIs(t, err, core.ErrInsufficientLiquidity)
}
