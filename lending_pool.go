package alphalend

import (
	"context"
	"sync"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/metrics"
	"github.com/facebookgo/clock"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
)

// LendingPool is the entry point of every user and admin action. Calls are
// serialized; each one runs against a private workspace that is committed as
// a whole or not at all.
type LendingPool struct {
	mu sync.Mutex

	clk     clock.Clock
	log     core.Log
	store   core.Store
	vault   core.Vault
	oracle  core.PriceOracle
	metrics *metrics.LendingMetrics

	owner          string
	distributor    string
	alphaAssetId   string
	alphaReceiver  core.AlphaReceiver
	reservePercent *uint256.Int
}

type OptionFunc func(lp *LendingPool)

func WithClock(clk clock.Clock) OptionFunc {
	return func(lp *LendingPool) {
		lp.clk = clk
	}
}

func WithLogger(log core.Log) OptionFunc {
	return func(lp *LendingPool) {
		lp.log = log
	}
}

func WithPriceOracle(oracle core.PriceOracle) OptionFunc {
	return func(lp *LendingPool) {
		lp.oracle = oracle
	}
}

func WithMetrics(m *metrics.LendingMetrics) OptionFunc {
	return func(lp *LendingPool) {
		lp.metrics = m
	}
}

func WithDistributor(distributor string) OptionFunc {
	return func(lp *LendingPool) {
		lp.distributor = distributor
	}
}

func WithAlphaAsset(assetId string) OptionFunc {
	return func(lp *LendingPool) {
		lp.alphaAssetId = assetId
	}
}

func WithAlphaReceiver(receiver core.AlphaReceiver) OptionFunc {
	return func(lp *LendingPool) {
		lp.alphaReceiver = receiver
	}
}

func WithReservePercent(percent *uint256.Int) OptionFunc {
	return func(lp *LendingPool) {
		lp.reservePercent = percent.Clone()
	}
}

func New(owner string, store core.Store, vault core.Vault, opts ...OptionFunc) *LendingPool {
	nop := zerolog.Nop()
	lp := &LendingPool{
		clk:            clock.New(),
		log:            &nop,
		store:          store,
		vault:          vault,
		owner:          owner,
		reservePercent: core.DEFAULT_RESERVE_PERCENT.Clone(),
	}
	for _, opt := range opts {
		opt(lp)
	}
	return lp
}

func (lp *LendingPool) Owner() string {
	return lp.owner
}

func (lp *LendingPool) Distributor() string {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.distributor
}

func (lp *LendingPool) ReservePercent() *uint256.Int {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.reservePercent.Clone()
}

// transact runs fn against a fresh workspace and commits it when fn succeeds.
func (lp *LendingPool) transact(ctx context.Context, action string, fn func(w *workspace) error) error {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	w := lp.newWorkspace(ctx)
	if err := fn(w); err != nil {
		lp.fail(action, err)
		return err
	}
	if err := w.commit(); err != nil {
		lp.fail(action, err)
		return err
	}
	for _, fn := range w.committed {
		fn()
	}

	lp.log.Info().Str("action", action).Int("pools", len(w.pools)).Int("events", len(w.events)).Msg("commit")
	lp.metrics.ObserveAction(action)
	for _, pool := range w.pools {
		lp.metrics.ObservePool(pool)
	}
	return nil
}

// view runs fn against a workspace that is never committed.
func (lp *LendingPool) view(ctx context.Context, fn func(w *workspace) error) error {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return fn(lp.newWorkspace(ctx))
}

func (lp *LendingPool) fail(action string, err error) {
	lp.log.Warn().Err(err).Str("action", action).Str("kind", core.KindOf(err).String()).Msg("action rejected")
	lp.metrics.ObserveFailure(action, err)
}

func (lp *LendingPool) checkOwner(caller string) error {
	if caller == "" || caller != lp.owner {
		return core.ErrNotOwner
	}
	return nil
}

func requirePositive(amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return core.ErrInvalidAmount
	}
	return nil
}

func dec(x *uint256.Int) string {
	if x == nil {
		return "<nil>"
	}
	return x.Dec()
}
