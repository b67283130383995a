package alphalend

import (
	"context"
	"testing"
	"time"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/store"
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/facebookgo/clock"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	owner       = "owner"
	distributor = "distributor"
	alphaAsset  = "alpha"
	bnb         = "bnb"
	busd        = "busd"
)

func testLog() core.Log {
	l := zerolog.Nop()
	return &l
}

func testConfig() core.PoolConfig {
	return core.NewPoolConfig(wad.Ratio(1, 10), wad.Ratio(2, 10), wad.Ratio(4, 10), wad.Ratio(75, 100), wad.Ratio(105, 100))
}

type fixture struct {
	ctx    context.Context
	clk    *clock.Mock
	store  *store.MemoryStore
	vault  *store.MemoryVault
	oracle *core.StaticPriceOracle
	lp     *LendingPool
}

// newFixture lists active BNB and BUSD pools, both priced at 1.
func newFixture(t *testing.T, opts ...OptionFunc) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		clk:    clock.NewMock(),
		store:  store.NewMemoryStore(),
		vault:  store.NewMemoryVault(),
		oracle: core.NewStaticPriceOracle(),
	}
	f.oracle.SetPrice(bnb, wad.Wads(1))
	f.oracle.SetPrice(busd, wad.Wads(1))

	opts = append([]OptionFunc{
		WithClock(f.clk),
		WithLogger(testLog()),
		WithPriceOracle(f.oracle),
		WithDistributor(distributor),
		WithAlphaAsset(alphaAsset),
	}, opts...)
	f.lp = New(owner, f.store, f.vault, opts...)

	for _, symbol := range []string{bnb, busd} {
		_, err := f.lp.InitPool(f.ctx, owner, &core.Asset{AssetID: symbol, Symbol: symbol}, testConfig())
		require.NoError(t, err)
		require.NoError(t, f.lp.SetPoolStatus(f.ctx, owner, symbol, core.PoolStatusActive))
	}
	return f
}

// failingStore fails writes while an error is set.
type failingStore struct {
	*store.MemoryStore
	commitErr error
	saveErr   error
}

func (s *failingStore) Commit(ctx context.Context, changes *core.ChangeSet) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	return s.MemoryStore.Commit(ctx, changes)
}

func (s *failingStore) SaveReceipt(ctx context.Context, receipt *core.Receipt) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.SaveReceipt(ctx, receipt)
}

// recordingVault logs every transfer and fails the next push to a user/asset
// listed in failPush.
type recordingVault struct {
	*store.MemoryVault
	calls    []string
	failPush map[string]error
}

func (v *recordingVault) Pull(ctx context.Context, from, assetId string, amount *uint256.Int) error {
	v.calls = append(v.calls, "pull "+from+" "+assetId+" "+wad.ToDecimal(amount).String())
	return v.MemoryVault.Pull(ctx, from, assetId, amount)
}

func (v *recordingVault) Push(ctx context.Context, to, assetId string, amount *uint256.Int) error {
	v.calls = append(v.calls, "push "+to+" "+assetId+" "+wad.ToDecimal(amount).String())
	if err, ok := v.failPush[to+" "+assetId]; ok {
		delete(v.failPush, to+" "+assetId)
		return err
	}
	return v.MemoryVault.Push(ctx, to, assetId, amount)
}

func (f *fixture) failing() *failingStore {
	s := &failingStore{MemoryStore: f.store}
	f.lp.store = s
	return s
}

func (f *fixture) recording() *recordingVault {
	v := &recordingVault{MemoryVault: f.vault, failPush: make(map[string]error)}
	f.lp.vault = v
	return v
}

func (f *fixture) deposit(t *testing.T, user, assetId string, whole uint64) *uint256.Int {
	t.Helper()
	f.vault.Fund(user, assetId, wad.Wads(whole))
	shares, err := f.lp.Deposit(f.ctx, user, assetId, wad.Wads(whole))
	require.NoError(t, err)
	return shares
}

func (f *fixture) pool(t *testing.T, assetId string) *core.Pool {
	t.Helper()
	pool, err := f.store.GetPool(f.ctx, assetId)
	require.NoError(t, err)
	return pool
}

func (f *fixture) position(t *testing.T, user, assetId string) *core.UserPoolPosition {
	t.Helper()
	position, err := f.store.FindPosition(f.ctx, user, assetId)
	require.NoError(t, err)
	return position
}

func (f *fixture) events(t *testing.T, user string, typ core.EventType) []*core.Event {
	t.Helper()
	events, err := f.store.ListEvents(f.ctx, user, typ, 0, 0)
	require.NoError(t, err)
	return events
}

func TestInitPool(t *testing.T) {
	f := newFixture(t)

	pool := f.pool(t, bnb)
	assert.Equal(t, "AlBNB", pool.ShareToken.Name)
	assert.Equal(t, "alBNB", pool.ShareToken.Symbol)
	assert.Equal(t, core.PoolStatusActive, pool.Status)

	asset, err := f.store.GetAsset(f.ctx, bnb)
	require.NoError(t, err)
	assert.Equal(t, bnb, asset.Symbol)

	_, err = f.lp.InitPool(f.ctx, owner, &core.Asset{AssetID: bnb, Symbol: bnb}, testConfig())
	assert.ErrorIs(t, err, core.ErrPoolExists)

	_, err = f.lp.InitPool(f.ctx, "alice", &core.Asset{AssetID: "dai", Symbol: "dai"}, testConfig())
	assert.ErrorIs(t, err, core.ErrNotOwner)

	dai, err := f.lp.InitPool(f.ctx, owner, &core.Asset{AssetID: "dai", Symbol: "dai"}, testConfig())
	require.NoError(t, err)
	assert.Equal(t, core.PoolStatusInactive, dai.Status)

	f.vault.Fund("alice", "dai", wad.Wads(1))
	_, err = f.lp.Deposit(f.ctx, "alice", "dai", wad.Wads(1))
	assert.ErrorIs(t, err, core.ErrPoolNotDepositable)

	assert.Len(t, f.events(t, owner, core.EventPoolInitialized), 3)
}

func TestDepositFirstDepositEnablesCollateral(t *testing.T) {
	f := newFixture(t)

	data, err := f.lp.GetUserPoolData(f.ctx, "alice", bnb)
	require.NoError(t, err)
	assert.False(t, data.UseAsCollateral)
	assert.True(t, data.LiquidityShares.IsZero())

	shares := f.deposit(t, "alice", bnb, 10)
	assert.Equal(t, wad.Wads(10).Dec(), shares.Dec())
	assert.True(t, f.position(t, "alice", bnb).UseAsCollateral)
	assert.True(t, f.vault.Balance("alice", bnb).IsZero())
	assert.Equal(t, wad.Wads(10).Dec(), f.vault.Custody(bnb).Dec())

	require.NoError(t, f.lp.SetUseAsCollateral(f.ctx, "alice", bnb, false))
	f.deposit(t, "alice", bnb, 5)

	position := f.position(t, "alice", bnb)
	assert.False(t, position.UseAsCollateral, "later deposits keep the flag")
	assert.Equal(t, wad.Wads(15).Dec(), position.LiquidityShares.Dec())

	pool := f.pool(t, bnb)
	assert.Equal(t, wad.Wads(15).Dec(), pool.Cash.Dec())
	assert.Equal(t, wad.Wads(15).Dec(), pool.TotalLiquidityShares.Dec())
	assert.Len(t, f.events(t, "alice", core.EventDeposit), 2)
}

func TestDepositWithoutFunds(t *testing.T) {
	f := newFixture(t)

	_, err := f.lp.Deposit(f.ctx, "alice", bnb, wad.Wads(1))
	assert.Error(t, err)

	// the failed transfer discards the whole call
	pool := f.pool(t, bnb)
	assert.True(t, pool.Cash.IsZero())
	_, err = f.store.FindPosition(f.ctx, "alice", bnb)
	assert.Error(t, err)
	assert.Empty(t, f.events(t, "alice", ""))
}

func TestDepositRejectsZeroAndUnknownPool(t *testing.T) {
	f := newFixture(t)

	_, err := f.lp.Deposit(f.ctx, "alice", bnb, wad.Zero())
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = f.lp.Deposit(f.ctx, "alice", "doge", wad.Wads(1))
	assert.ErrorIs(t, err, core.ErrPoolNotFound)
}

func TestBorrowRequiresHealthyAccount(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "bob", busd, 100)
	f.deposit(t, "alice", bnb, 10)

	_, err := f.lp.Borrow(f.ctx, "alice", busd, wad.Wads(8))
	assert.ErrorIs(t, err, core.ErrAccountNotHealthy)
	assert.Equal(t, wad.Wads(100).Dec(), f.pool(t, busd).Cash.Dec())
	assert.True(t, f.vault.Balance("alice", busd).IsZero())

	shares, err := f.lp.Borrow(f.ctx, "alice", busd, wad.Wads(7))
	require.NoError(t, err)
	assert.Equal(t, wad.Wads(7).Dec(), shares.Dec())
	assert.Equal(t, wad.Wads(7).Dec(), f.vault.Balance("alice", busd).Dec())

	pool := f.pool(t, busd)
	assert.Equal(t, wad.Wads(93).Dec(), pool.Cash.Dec())
	assert.Equal(t, wad.Wads(7).Dec(), pool.TotalBorrows.Dec())

	_, err = f.lp.Borrow(f.ctx, "alice", busd, wad.Wads(200))
	assert.ErrorIs(t, err, core.ErrInsufficientLiquidity)
}

func TestWithdrawKeepsAccountHealthy(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "bob", busd, 100)
	f.deposit(t, "alice", bnb, 10)
	_, err := f.lp.Borrow(f.ctx, "alice", busd, wad.Wads(7))
	require.NoError(t, err)

	_, _, err = f.lp.Withdraw(f.ctx, "alice", bnb, wad.Wads(10))
	assert.ErrorIs(t, err, core.ErrAccountNotHealthy)
	assert.ErrorContains(t, err, "can't withdraw")

	err = f.lp.SetUseAsCollateral(f.ctx, "alice", bnb, false)
	assert.ErrorIs(t, err, core.ErrAccountNotHealthy)
	assert.True(t, f.position(t, "alice", bnb).UseAsCollateral)

	amount, burned, err := f.lp.Withdraw(f.ctx, "alice", bnb, wad.Ratio(6, 10))
	require.NoError(t, err)
	assert.Equal(t, wad.Ratio(6, 10).Dec(), amount.Dec())
	assert.Equal(t, wad.Ratio(6, 10).Dec(), burned.Dec())
	assert.Equal(t, wad.Ratio(6, 10).Dec(), f.vault.Balance("alice", bnb).Dec())

	// bob has no debt and may leave entirely, clamped to his shares
	amount, burned, err = f.lp.Withdraw(f.ctx, "bob", busd, wad.Wads(1000))
	assert.ErrorIs(t, err, core.ErrInsufficientLiquidity)

	amount, burned, err = f.lp.Withdraw(f.ctx, "bob", busd, wad.Wads(93))
	require.NoError(t, err)
	assert.Equal(t, wad.Wads(93).Dec(), amount.Dec())
	assert.Equal(t, wad.Wads(93).Dec(), burned.Dec())
}

func TestWithdrawOutsideCollateral(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "bob", busd, 100)
	f.deposit(t, "alice", bnb, 100)
	f.deposit(t, "alice", busd, 20)
	require.NoError(t, f.lp.SetUseAsCollateral(f.ctx, "alice", busd, false))
	_, err := f.lp.Borrow(f.ctx, "alice", busd, wad.Wads(70))
	require.NoError(t, err)

	f.oracle.SetPrice(bnb, wad.Ratio(5, 10))

	// busd never counted as collateral, so taking it out can't hurt
	amount, _, err := f.lp.Withdraw(f.ctx, "alice", busd, wad.Wads(1))
	require.NoError(t, err)
	assert.Equal(t, wad.Wads(1).Dec(), amount.Dec())

	_, _, err = f.lp.Withdraw(f.ctx, "alice", bnb, wad.Wads(1))
	assert.ErrorIs(t, err, core.ErrAccountNotHealthy)
}

func TestCommitFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "bob", busd, 100)
	f.deposit(t, "alice", bnb, 10)
	failing := f.failing()
	vault := f.recording()
	before := f.pool(t, busd)

	failing.commitErr = errors.New("db down")
	_, err := f.lp.Borrow(f.ctx, "alice", busd, wad.Wads(7))
	assert.ErrorContains(t, err, "db down")

	assert.Equal(t, []string{"push alice busd 7", "pull alice busd 7"}, vault.calls)
	assert.Equal(t, before, f.pool(t, busd))
	_, err = f.store.FindPosition(f.ctx, "alice", busd)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.True(t, f.vault.Balance("alice", busd).IsZero())
	assert.Equal(t, wad.Wads(100).Dec(), f.vault.Custody(busd).Dec())
	assert.Empty(t, f.events(t, "alice", core.EventBorrow))

	failing.commitErr = nil
	_, err = f.lp.Borrow(f.ctx, "alice", busd, wad.Wads(7))
	require.NoError(t, err)
	assert.Equal(t, wad.Wads(7).Dec(), f.vault.Balance("alice", busd).Dec())
	assert.Len(t, f.events(t, "alice", core.EventBorrow), 1)
}

func TestCommitFailureReversesTransfersNewestFirst(t *testing.T) {
	f := newFixture(t)
	failing := f.failing()
	vault := f.recording()
	f.vault.Fund("alice", bnb, wad.Wads(5))

	// busd attached to a bnb deposit: bnb is pulled, the busd goes back
	snap := f.attach("req-1", "alice", busd, "5", encode(t, core.MATDeposit, bnb, "5"))
	failing.commitErr = errors.New("db down")
	receipt, err := f.lp.Dispatch(f.ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, core.ReceiptStatusFailed, receipt.Status)

	assert.Equal(t, []string{
		"pull alice bnb 5",
		"push alice busd 5",
		"pull alice busd 5",
		"push alice bnb 5",
		"push alice busd 5",
	}, vault.calls)
	assert.Equal(t, wad.Wads(5).Dec(), f.vault.Balance("alice", bnb).Dec())
	assert.Equal(t, wad.Wads(5).Dec(), f.vault.Balance("alice", busd).Dec())
	assert.True(t, f.vault.Custody(bnb).IsZero())
	assert.True(t, f.vault.Custody(busd).IsZero())
	assert.True(t, f.pool(t, bnb).Cash.IsZero())
}

func TestPushFailureReversesPulls(t *testing.T) {
	f := newFixture(t)
	vault := f.recording()
	f.vault.Fund("alice", bnb, wad.Wads(5))
	vault.failPush["alice busd"] = errors.New("wallet offline")

	snap := f.attach("req-1", "alice", busd, "5", encode(t, core.MATDeposit, bnb, "5"))
	receipt, err := f.lp.Dispatch(f.ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, core.ReceiptStatusFailed, receipt.Status)
	assert.Contains(t, receipt.Message, "wallet offline")

	assert.Equal(t, []string{
		"pull alice bnb 5",
		"push alice busd 5",
		"push alice bnb 5",
		"push alice busd 5",
	}, vault.calls)
	assert.Equal(t, wad.Wads(5).Dec(), f.vault.Balance("alice", bnb).Dec())
	assert.Equal(t, wad.Wads(5).Dec(), f.vault.Balance("alice", busd).Dec())
	_, err = f.store.FindPosition(f.ctx, "alice", bnb)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPullFailureMovesNothing(t *testing.T) {
	f := newFixture(t)
	vault := f.recording()
	before := f.pool(t, bnb)

	_, err := f.lp.Deposit(f.ctx, "alice", bnb, wad.Wads(1))
	assert.ErrorContains(t, err, "insufficient balance")
	assert.Equal(t, []string{"pull alice bnb 1"}, vault.calls)
	assert.Equal(t, before, f.pool(t, bnb))
	assert.Empty(t, f.events(t, "alice", core.EventDeposit))
}

func TestRepay(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "bob", busd, 100)
	f.deposit(t, "alice", bnb, 10)
	_, err := f.lp.Borrow(f.ctx, "alice", busd, wad.Wads(7))
	require.NoError(t, err)

	_, _, err = f.lp.RepayByAmount(f.ctx, "bob", busd, wad.Wads(1))
	assert.ErrorIs(t, err, core.ErrNoDebt)

	paid, burned, err := f.lp.RepayByAmount(f.ctx, "alice", busd, wad.Wads(2))
	require.NoError(t, err)
	assert.Equal(t, wad.Wads(2).Dec(), paid.Dec())
	assert.Equal(t, wad.Wads(2).Dec(), burned.Dec())
	assert.Equal(t, wad.Wads(5).Dec(), f.vault.Balance("alice", busd).Dec())

	f.vault.Fund("alice", busd, wad.Wads(10))
	paid, burned, err = f.lp.RepayByShare(f.ctx, "alice", busd, wad.Wads(100))
	require.NoError(t, err)
	assert.Equal(t, wad.Wads(5).Dec(), paid.Dec(), "clamped to the remaining debt")
	assert.Equal(t, wad.Wads(5).Dec(), burned.Dec())

	pool := f.pool(t, busd)
	assert.True(t, pool.TotalBorrows.IsZero())
	assert.True(t, pool.TotalBorrowShares.IsZero())
	assert.Equal(t, wad.Wads(100).Dec(), pool.Cash.Dec())
	assert.True(t, f.position(t, "alice", busd).BorrowShares.IsZero())
	assert.Len(t, f.events(t, "alice", core.EventRepay), 2)

	_, _, err = f.lp.RepayByShare(f.ctx, "alice", busd, wad.Wads(1))
	assert.ErrorIs(t, err, core.ErrNoDebt)
}

func TestInterestAccruesOnEveryEntryPoint(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "bob", busd, 100)
	f.deposit(t, "alice", bnb, 100)
	_, err := f.lp.Borrow(f.ctx, "alice", busd, wad.Wads(50))
	require.NoError(t, err)

	f.clk.Add(365 * 24 * time.Hour)

	data, err := f.lp.GetPoolData(f.ctx, busd)
	require.NoError(t, err)
	assert.True(t, data.TotalBorrows.Gt(wad.Wads(50)))
	assert.False(t, data.PoolReserves.IsZero())
	assert.Equal(t, f.clk.Now().Unix(), data.LastUpdateTimestamp)

	// views never write
	assert.Equal(t, wad.Wads(50).Dec(), f.pool(t, busd).TotalBorrows.Dec())

	f.deposit(t, "carol", busd, 1)
	pool := f.pool(t, busd)
	assert.Equal(t, data.TotalBorrows.Dec(), pool.TotalBorrows.Dec())
	assert.Equal(t, f.clk.Now().Unix(), pool.LastUpdateTimestamp)

	user, err := f.lp.GetUserPoolData(f.ctx, "alice", busd)
	require.NoError(t, err)
	assert.Equal(t, pool.TotalBorrows.Dec(), user.CompoundedBorrowBalance.Dec(), "sole borrower owes everything")
}

func TestClosedPool(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, "alice", bnb, 10)
	require.NoError(t, f.lp.SetPoolStatus(f.ctx, owner, bnb, core.PoolStatusClosed))

	f.vault.Fund("alice", bnb, wad.Wads(1))
	_, err := f.lp.Deposit(f.ctx, "alice", bnb, wad.Wads(1))
	assert.ErrorIs(t, err, core.ErrPoolNotDepositable)
	_, err = f.lp.Borrow(f.ctx, "alice", bnb, wad.Wads(1))
	assert.ErrorIs(t, err, core.ErrPoolNotBorrowable)

	_, _, err = f.lp.Withdraw(f.ctx, "alice", bnb, wad.Wads(10))
	require.NoError(t, err)

	err = f.lp.SetPoolStatus(f.ctx, owner, bnb, core.PoolStatus(9))
	assert.ErrorIs(t, err, core.ErrInvalidPoolStatus)
	err = f.lp.SetPoolStatus(f.ctx, "alice", bnb, core.PoolStatusActive)
	assert.ErrorIs(t, err, core.ErrNotOwner)
}
