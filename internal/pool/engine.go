// Package pool runs constant-product pool operations against a ledger. Each
// public operation is one atomic unit of work: it re-reads the pool record
// and live balances, validates every precondition before touching a balance,
// and relies on the ledger transaction to discard partial effects on failure.
package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/curve"
	"cpamm/internal/errs"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// Engine executes pool operations.
type Engine struct {
	ledger    ledger.Ledger
	logger    *zap.Logger
	metrics   *Metrics
	precision uint8
}

// NewEngine builds an Engine. metrics may be nil.
func NewEngine(l ledger.Ledger, logger *zap.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ledger:    l,
		logger:    logger,
		metrics:   metrics,
		precision: curve.Precision,
	}
}

// Snapshot reads a pool record with its live reserves and share supply.
func (e *Engine) Snapshot(ctx context.Context, address common.Address) (model.PoolSnapshot, error) {
	var snap model.PoolSnapshot
	err := e.ledger.RunInTx(ctx, func(ctx context.Context, store ledger.Store) error {
		r, err := resolvePool(ctx, store, address)
		if err != nil {
			return err
		}
		snap = r.snapshot()
		return nil
	})
	return snap, err
}

func (e *Engine) execute(ctx context.Context, op string, fn func(ctx context.Context, store ledger.Store) error) error {
	if e.ledger == nil {
		return fmt.Errorf("ledger is nil")
	}
	start := time.Now()
	err := e.ledger.RunInTx(ctx, fn)
	e.metrics.observe(op, time.Since(start), err)
	return err
}

func (e *Engine) logRejected(op string, pool common.Address, user common.Address, err error) {
	e.logger.Warn(op+" rejected",
		zap.String("pool", pool.Hex()),
		zap.String("user", user.Hex()),
		zap.String("code", string(errs.CodeOf(err))),
		zap.Error(err),
	)
}
