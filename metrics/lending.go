package metrics

import (
	"sync"

	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/prometheus/client_golang/prometheus"
)

type LendingMetrics struct {
	actions          *prometheus.CounterVec
	failures         *prometheus.CounterVec
	totalBorrows     *prometheus.GaugeVec
	totalLiquidity   *prometheus.GaugeVec
	poolReserves     *prometheus.GaugeVec
	utilization      *prometheus.GaugeVec
	alphaDistributed *prometheus.CounterVec
	alphaClaimed     prometheus.Counter
	liquidations     *prometheus.CounterVec
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

// Lending returns the process wide metrics registered on the default registry.
func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = New(prometheus.DefaultRegisterer)
	})
	return lendingRegistry
}

func New(reg prometheus.Registerer) *LendingMetrics {
	m := &LendingMetrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alphalend_actions_total",
			Help: "Count of committed lending pool actions by type.",
		}, []string{"action"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alphalend_action_failures_total",
			Help: "Count of rejected lending pool actions by type and error kind.",
		}, []string{"action", "kind"}),
		totalBorrows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alphalend_pool_total_borrows",
			Help: "Outstanding debt of a pool including accrued interest.",
		}, []string{"asset"}),
		totalLiquidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alphalend_pool_total_liquidity",
			Help: "Liquidity backing the share token of a pool.",
		}, []string{"asset"}),
		poolReserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alphalend_pool_reserves",
			Help: "Reserves skimmed from interest and owed to the owner.",
		}, []string{"asset"}),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "alphalend_pool_utilization",
			Help: "Borrowed share of a pool's total liquidity.",
		}, []string{"asset"}),
		alphaDistributed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alphalend_alpha_distributed_total",
			Help: "Alpha reward pushed into pools by side.",
		}, []string{"asset", "side"}),
		alphaClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alphalend_alpha_claimed_total",
			Help: "Alpha reward claimed by users.",
		}),
		liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alphalend_liquidations_total",
			Help: "Count of liquidations by debt asset.",
		}, []string{"asset"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.actions,
			m.failures,
			m.totalBorrows,
			m.totalLiquidity,
			m.poolReserves,
			m.utilization,
			m.alphaDistributed,
			m.alphaClaimed,
			m.liquidations,
		)
	}
	return m
}

func (m *LendingMetrics) ObserveAction(action string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action).Inc()
}

func (m *LendingMetrics) ObserveFailure(action string, err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(action, core.KindOf(err).String()).Inc()
}

// ObservePool exports the pool totals as human readable token amounts.
func (m *LendingMetrics) ObservePool(pool *core.Pool) {
	if m == nil || pool == nil {
		return
	}
	m.totalBorrows.WithLabelValues(pool.AssetId).Set(wad.ToDecimal(pool.TotalBorrows).InexactFloat64())
	m.poolReserves.WithLabelValues(pool.AssetId).Set(wad.ToDecimal(pool.PoolReserves).InexactFloat64())
	if total, err := pool.TotalLiquidity(); err == nil {
		m.totalLiquidity.WithLabelValues(pool.AssetId).Set(wad.ToDecimal(total).InexactFloat64())
	}
	if utilization, err := pool.UtilizationRate(); err == nil {
		m.utilization.WithLabelValues(pool.AssetId).Set(wad.ToDecimal(utilization).InexactFloat64())
	}
}

func (m *LendingMetrics) ObserveReward(assetId string, lenders, borrowers float64) {
	if m == nil {
		return
	}
	m.alphaDistributed.WithLabelValues(assetId, "lend").Add(lenders)
	m.alphaDistributed.WithLabelValues(assetId, "borrow").Add(borrowers)
}

func (m *LendingMetrics) ObserveClaim(amount float64) {
	if m == nil {
		return
	}
	m.alphaClaimed.Add(amount)
}

func (m *LendingMetrics) ObserveLiquidation(assetId string) {
	if m == nil {
		return
	}
	m.liquidations.WithLabelValues(assetId).Inc()
}
