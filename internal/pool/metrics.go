package pool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cpamm/internal/errs"
)

// Metrics holds the Prometheus metrics for the engine. A nil *Metrics
// records nothing.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	swapVolume        *prometheus.CounterVec
	swapFees          *prometheus.CounterVec
	liquidityMoved    *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_operations_total",
			Help: "Pool operations, labeled by operation and result code.",
		}, []string{"operation", "result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pool_operation_duration_seconds",
			Help:    "Time spent inside the ledger transaction of one operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		swapVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_swap_volume_total",
			Help: "Base units sold into pools, labeled by pool and input side.",
		}, []string{"pool", "side"}),
		swapFees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_swap_fees_total",
			Help: "Base units retained as fees, labeled by pool and input side.",
		}, []string{"pool", "side"}),
		liquidityMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_liquidity_shares_total",
			Help: "Shares minted or burned, labeled by pool and direction.",
		}, []string{"pool", "direction"}),
	}
	reg.MustRegister(m.operationsTotal, m.operationDuration, m.swapVolume, m.swapFees, m.liquidityMoved)
	return m
}

func (m *Metrics) observe(op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = string(errs.CodeOf(err))
	}
	m.operationsTotal.WithLabelValues(op, result).Inc()
	m.operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) observeSwap(r SwapResult) {
	if m == nil {
		return
	}
	pool, side := r.Pool.Hex(), r.Side.String()
	m.swapVolume.WithLabelValues(pool, side).Add(float64(r.AmountIn))
	m.swapFees.WithLabelValues(pool, side).Add(float64(r.Fee))
}

func (m *Metrics) observeDeposit(r DepositResult) {
	if m == nil {
		return
	}
	m.liquidityMoved.WithLabelValues(r.Pool.Hex(), "mint").Add(float64(r.SharesMinted))
}

func (m *Metrics) observeWithdraw(r WithdrawResult) {
	if m == nil {
		return
	}
	m.liquidityMoved.WithLabelValues(r.Pool.Hex(), "burn").Add(float64(r.SharesBurned))
}
