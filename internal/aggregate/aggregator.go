// Package aggregate folds the operation journal into per-pool window
// metrics: swap counts, volumes, exact fees, TVL and fee yield.
package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cpamm/internal/curve"
	"cpamm/internal/model"
)

const (
	feeMethodJournal = "exact_from_journal"
	tvlMethodJournal = "journal_reserves_window_end"
	tvlMethodLedger  = "ledger_reserves_latest"
	tvlMethodNone    = "unavailable"
)

// MetricsSink receives finished windows.
type MetricsSink interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// ReserveReader reads current pool reserves. pool.Engine implements it.
type ReserveReader interface {
	Snapshot(ctx context.Context, pool common.Address) (model.PoolSnapshot, error)
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	Precision     uint8
	StateStore    StateStore
}

// Aggregator aggregates journal entries into pool window metrics.
type Aggregator struct {
	cfg          Config
	sink         MetricsSink
	reserves     ReserveReader
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

// NewAggregator builds an Aggregator. reserves may be nil, in which case
// windows without a journaled swap have no TVL.
func NewAggregator(cfg Config, sink MetricsSink, reserves ReserveReader, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Precision == 0 {
		cfg.Precision = curve.Precision
	}
	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		reserves:     reserves,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run executes aggregation over a journal JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.sink == nil {
		return fmt.Errorf("metrics sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, windows, skipped, failed int

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var entry model.JournalEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			failed++
			a.logger.Warn("decode journal entry", zap.Error(err))
			continue
		}
		if entry.Timestamp <= startTs {
			skipped++
			continue
		}

		ws := windowStart(entry.Timestamp, a.cfg.WindowSeconds)
		key := poolKey(entry.Pool)
		acc := a.accumulators[key]
		if acc != nil && acc.WindowStart != ws {
			batch = append(batch, a.flushAccumulator(ctx, acc))
			windows++
			acc = nil
		}
		if acc == nil {
			acc = NewAccumulator(entry, ws, ws+a.cfg.WindowSeconds)
			a.accumulators[key] = acc
		}

		if err := acc.AddEntry(entry); err != nil {
			failed++
			a.logger.Warn("aggregate entry", zap.Error(err), zap.String("pool", entry.Pool), zap.Uint64("sequence", entry.Sequence))
			continue
		}
		if entry.Timestamp > maxTs {
			maxTs = entry.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	for _, acc := range a.accumulators {
		batch = append(batch, a.flushAccumulator(ctx, acc))
		windows++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records the newest timestamp whose window is fully written: just
// before the oldest window still open.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs--
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flushAccumulator(ctx context.Context, acc *Accumulator) model.PoolWindowMetrics {
	tvlX, tvlY, tvlMethod := a.resolveTVL(ctx, acc)
	feeRateX, feeRateY := computeFeeRates(acc.FeeX, acc.FeeY, tvlX, tvlY)

	metrics := model.PoolWindowMetrics{
		PoolAddress:    acc.PoolAddress,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		DepositCount:   acc.DepositCount,
		WithdrawCount:  acc.WithdrawCount,
		VolumeX:        formatAmount(acc.VolumeX, a.cfg.Precision),
		VolumeY:        formatAmount(acc.VolumeY, a.cfg.Precision),
		FeeX:           formatAmount(acc.FeeX, a.cfg.Precision),
		FeeY:           formatAmount(acc.FeeY, a.cfg.Precision),
		FeeRateX:       feeRateX,
		FeeRateY:       feeRateY,
		APR:            computeAPR(feeRateX, feeRateY, a.cfg.WindowSeconds),
		FeeMethod:      feeMethodJournal,
		TVLMethod:      tvlMethod,
	}
	if tvlX != nil {
		val := formatAmount(*tvlX, a.cfg.Precision)
		metrics.TVLX = &val
	}
	if tvlY != nil {
		val := formatAmount(*tvlY, a.cfg.Precision)
		metrics.TVLY = &val
	}
	return metrics
}

// resolveTVL prefers the reserves journaled with the window's last swap and
// falls back to the ledger's current reserves.
func (a *Aggregator) resolveTVL(ctx context.Context, acc *Accumulator) (*decimal.Decimal, *decimal.Decimal, string) {
	if acc.HasReserves {
		x, y := acc.ReserveX, acc.ReserveY
		return &x, &y, tvlMethodJournal
	}
	if a.reserves == nil || !common.IsHexAddress(acc.PoolAddress) {
		return nil, nil, tvlMethodNone
	}
	snap, err := a.reserves.Snapshot(ctx, common.HexToAddress(acc.PoolAddress))
	if err != nil {
		a.logger.Warn("tvl lookup failed", zap.String("pool", acc.PoolAddress), zap.Error(err))
		return nil, nil, tvlMethodNone
	}
	x := decimal.NewFromBigInt(new(big.Int).SetUint64(snap.ReserveX), 0)
	y := decimal.NewFromBigInt(new(big.Int).SetUint64(snap.ReserveY), 0)
	return &x, &y, tvlMethodLedger
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func poolKey(address string) string {
	return strings.ToLower(address)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
